package value

import (
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the fixed-point factor: an Int stores a decimal number times 1000.
const Scale = 1000

// Int is a signed fixed-point number with three fractional digits.
type Int int64

const (
	MaxInt Int = math.MaxInt64
	MinInt Int = math.MinInt64

	// Sentinel is the error value produced by domain violations (sqrt of a
	// negative number, asin outside [-1,1], ...). It is never a fault.
	Sentinel = MinInt
)

var (
	ErrDivideByZero = errors.New("divide by zero")
	ErrTypeMismatch = errors.New("operation not defined for text")
)

func NewInt(v int64) Int {
	if v > math.MaxInt64/Scale {
		return MaxInt
	}
	if v < math.MinInt64/Scale {
		return MinInt
	}
	return Int(v * Scale)
}

// IntFromFloat rounds half away from zero. NaN, infinities and values outside
// the representable range become the Sentinel.
func IntFromFloat(f float64) Int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Sentinel
	}
	s := math.Round(f * Scale)
	if s >= 0x1p63 || s < -0x1p63 {
		return Sentinel
	}
	return Int(s)
}

// IntFromDecimal converts exactly, rounding half away from zero past the
// third fractional digit.
func IntFromDecimal(d decimal.Decimal) Int {
	r := d.Shift(3).Round(0).BigInt()
	if !r.IsInt64() {
		return Sentinel
	}
	return Int(r.Int64())
}

func IntFromBool(b bool) Int {
	if b {
		return Scale
	}
	return 0
}

func ParseInt(s string) (Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return IntFromDecimal(d), nil
}

func (a Int) Raw() int64       { return int64(a) }
func (a Int) Float() float64   { return float64(a) / Scale }
func (a Int) Truthy() bool     { return a != 0 }
func (a Int) IsSentinel() bool { return a == Sentinel }

func (a Int) Decimal() decimal.Decimal { return decimal.New(int64(a), -3) }

// String renders "int.frac" with the fraction trimmed of trailing zeros and
// omitted when zero.
func (a Int) String() string { return a.Decimal().String() }

func (a Int) Add(b Int) Int {
	s := a + b
	if a > 0 && b > 0 && s < 0 {
		return MaxInt
	}
	if a < 0 && b < 0 && s >= 0 {
		return MinInt
	}
	return s
}

func (a Int) Sub(b Int) Int {
	s := a - b
	if a >= 0 && b < 0 && s < 0 {
		return MaxInt
	}
	if a < 0 && b > 0 && s >= 0 {
		return MinInt
	}
	return s
}

// Mul wraps on the raw product before rescaling, like the game's runtime.
func (a Int) Mul(b Int) Int {
	return (a * b) / Scale
}

func (a Int) Div(b Int) (Int, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	n := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(Scale))
	n.Quo(n, big.NewInt(int64(b)))
	if !n.IsInt64() {
		if n.Sign() > 0 {
			return MaxInt, nil
		}
		return MinInt, nil
	}
	return Int(n.Int64()), nil
}

// Mod is the truncated remainder; it cannot overflow (MinInt % -1 == 0).
func (a Int) Mod(b Int) (Int, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a % b, nil
}

// Neg and Abs leave the Sentinel unchanged so the error keeps propagating.
func (a Int) Neg() Int {
	if a == Sentinel {
		return Sentinel
	}
	return -a
}

func (a Int) Abs() Int {
	if a < 0 {
		return a.Neg()
	}
	return a
}

func (a Int) Not() Int { return IntFromBool(a == 0) }

func (a Int) Sqrt() Int {
	if a < 0 {
		return Sentinel
	}
	return IntFromFloat(math.Sqrt(a.Float()))
}

func (a Int) radians() float64 { return a.Float() * math.Pi / 180 }

func degrees(r float64) float64 { return r * 180 / math.Pi }

func (a Int) Sin() Int { return IntFromFloat(math.Sin(a.radians())) }
func (a Int) Cos() Int { return IntFromFloat(math.Cos(a.radians())) }

func (a Int) Tan() Int {
	if r := a % (180 * Scale); r == 90*Scale || r == -90*Scale {
		return Sentinel
	}
	return IntFromFloat(math.Tan(a.radians()))
}

func (a Int) Asin() Int {
	x := a.Float()
	if x < -1 || x > 1 {
		return Sentinel
	}
	return IntFromFloat(degrees(math.Asin(x)))
}

func (a Int) Acos() Int {
	x := a.Float()
	if x < -1 || x > 1 {
		return Sentinel
	}
	return IntFromFloat(degrees(math.Acos(x)))
}

func (a Int) Atan() Int { return IntFromFloat(degrees(math.Atan(a.Float()))) }

// Pow yields the Sentinel for NaN, infinite and subnormal results. Zero is a
// valid result.
func (a Int) Pow(b Int) Int {
	r := math.Pow(a.Float(), b.Float())
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Sentinel
	}
	if r != 0 && math.Abs(r) < 0x1p-1022 {
		return Sentinel
	}
	return IntFromFloat(r)
}

// Fac multiplies the integer part down to 1. Negative input and results that
// do not fit the fixed-point range yield the Sentinel.
func (a Int) Fac() Int {
	if a < 0 {
		return Sentinel
	}
	n := int64(a / Scale)
	r := int64(Scale)
	for i := int64(2); i <= n; i++ {
		next := r * i
		if next/i != r {
			return Sentinel
		}
		r = next
	}
	return Int(r)
}

func (a Int) Compare(b Int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
