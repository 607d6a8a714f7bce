package field

import (
	"strings"

	"shipsim.dev/internal/sim/value"
)

// Field binds a display name to a Value. Names compare case-insensitively.
type Field struct {
	name  string
	Value value.Value
}

func New(name string, v value.Value) Field {
	return Field{name: name, Value: v}
}

func (f Field) Name() string { return f.name }

// Key is the lookup form of the name.
func (f Field) Key() string { return strings.ToLower(f.name) }

func (f *Field) SetName(name string) { f.name = name }

func (f Field) Matches(name string) bool { return strings.EqualFold(f.name, name) }

func (f Field) String() string { return f.name + "=" + f.Value.String() }

// Clone returns an independent copy of fs.
func Clone(fs []Field) []Field {
	if fs == nil {
		return nil
	}
	out := make([]Field, len(fs))
	copy(out, fs)
	return out
}

// Find returns the index of the first field matching name, or -1.
func Find(fs []Field, name string) int {
	for i := range fs {
		if fs[i].Matches(name) {
			return i
		}
	}
	return -1
}

// PascalCase turns a snake_case identifier into the default display name.
func PascalCase(ident string) string {
	var b strings.Builder
	for _, part := range strings.Split(ident, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
