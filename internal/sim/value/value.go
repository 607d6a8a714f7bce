package value

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindInt Kind = iota
	KindText
)

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return "int"
}

// Value is either a fixed-point Int or a Text. The zero Value is Int 0.
type Value struct {
	kind Kind
	num  Int
	text string
}

func FromInt(n Int) Value                 { return Value{kind: KindInt, num: n} }
func FromInt64(v int64) Value             { return FromInt(NewInt(v)) }
func FromFloat(f float64) Value           { return FromInt(IntFromFloat(f)) }
func FromDecimal(d decimal.Decimal) Value { return FromInt(IntFromDecimal(d)) }
func FromBool(b bool) Value               { return FromInt(IntFromBool(b)) }
func FromString(s string) Value           { return Value{kind: KindText, text: s} }

// Parse reads a document scalar: decimal literals become Int, "true" and
// "false" become 1 and 0, anything else is Text.
func Parse(s string) Value {
	switch strings.TrimSpace(s) {
	case "true":
		return FromBool(true)
	case "false":
		return FromBool(false)
	}
	if n, err := ParseInt(s); err == nil {
		return FromInt(n)
	}
	return FromString(s)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsText() bool { return v.kind == KindText }

func (v Value) AsInt() (Int, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.num, true
}

func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Truthy is true only for a non-zero Int.
func (v Value) Truthy() bool { return v.kind == KindInt && v.num != 0 }

func (v Value) String() string {
	if v.kind == KindText {
		return v.text
	}
	return v.num.String()
}

// Add concatenates when either side is Text.
func (v Value) Add(o Value) Value {
	if v.kind == KindInt && o.kind == KindInt {
		return FromInt(v.num.Add(o.num))
	}
	return FromString(v.String() + o.String())
}

// Sub removes o from the end of v when either side is Text. It is a no-op
// unless o is a suffix of v.
func (v Value) Sub(o Value) Value {
	if v.kind == KindInt && o.kind == KindInt {
		return FromInt(v.num.Sub(o.num))
	}
	return FromString(strings.TrimSuffix(v.String(), o.String()))
}

func (v Value) Mul(o Value) (Value, error) {
	a, b, err := ints(v, o)
	if err != nil {
		return Value{}, err
	}
	return FromInt(a.Mul(b)), nil
}

func (v Value) Div(o Value) (Value, error) {
	a, b, err := ints(v, o)
	if err != nil {
		return Value{}, err
	}
	n, err := a.Div(b)
	if err != nil {
		return Value{}, err
	}
	return FromInt(n), nil
}

func (v Value) Mod(o Value) (Value, error) {
	a, b, err := ints(v, o)
	if err != nil {
		return Value{}, err
	}
	n, err := a.Mod(b)
	if err != nil {
		return Value{}, err
	}
	return FromInt(n), nil
}

func (v Value) Pow(o Value) (Value, error) {
	a, b, err := ints(v, o)
	if err != nil {
		return Value{}, err
	}
	return FromInt(a.Pow(b)), nil
}

func (v Value) And(o Value) Value { return FromBool(v.Truthy() && o.Truthy()) }
func (v Value) Or(o Value) Value  { return FromBool(v.Truthy() || o.Truthy()) }
func (v Value) Not() Value        { return FromBool(!v.Truthy()) }

func (v Value) Neg() (Value, error)  { return v.unary(Int.Neg) }
func (v Value) Abs() (Value, error)  { return v.unary(Int.Abs) }
func (v Value) Sqrt() (Value, error) { return v.unary(Int.Sqrt) }
func (v Value) Sin() (Value, error)  { return v.unary(Int.Sin) }
func (v Value) Cos() (Value, error)  { return v.unary(Int.Cos) }
func (v Value) Tan() (Value, error)  { return v.unary(Int.Tan) }
func (v Value) Asin() (Value, error) { return v.unary(Int.Asin) }
func (v Value) Acos() (Value, error) { return v.unary(Int.Acos) }
func (v Value) Atan() (Value, error) { return v.unary(Int.Atan) }
func (v Value) Fac() (Value, error)  { return v.unary(Int.Fac) }

func (v Value) unary(fn func(Int) Int) (Value, error) {
	if v.kind != KindInt {
		return Value{}, ErrTypeMismatch
	}
	return FromInt(fn(v.num)), nil
}

func ints(a, b Value) (Int, Int, error) {
	if a.kind != KindInt || b.kind != KindInt {
		return 0, 0, ErrTypeMismatch
	}
	return a.num, b.num, nil
}

// Equal is false across kinds.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindText {
		return v.text == o.text
	}
	return v.num == o.num
}

// Compare orders values of the same kind; ok is false across kinds.
func (v Value) Compare(o Value) (c int, ok bool) {
	if v.kind != o.kind {
		return 0, false
	}
	if v.kind == KindText {
		return strings.Compare(v.text, o.text), true
	}
	return v.num.Compare(o.num), true
}

func (v Value) Less(o Value) bool {
	c, ok := v.Compare(o)
	return ok && c < 0
}

// PreInc increments in place and returns the new value. Text grows by one
// space.
func (v *Value) PreInc() Value {
	v.step(1)
	return *v
}

// PostInc increments in place and returns the previous value.
func (v *Value) PostInc() Value {
	old := *v
	v.step(1)
	return old
}

func (v *Value) PreDec() Value {
	v.step(-1)
	return *v
}

func (v *Value) PostDec() Value {
	old := *v
	v.step(-1)
	return old
}

func (v *Value) step(dir int) {
	if v.kind == KindInt {
		if dir > 0 {
			v.num = v.num.Add(Scale)
		} else {
			v.num = v.num.Sub(Scale)
		}
		return
	}
	if dir > 0 {
		v.text += " "
		return
	}
	if v.text == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(v.text)
	v.text = v.text[:len(v.text)-size]
}
