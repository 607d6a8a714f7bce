package device

import (
	"shipsim.dev/internal/sim/doc"
	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

// Standard is any device kind whose state is a fixed list of fields with no
// further structure.
type Standard struct {
	kind   string
	idents []string
	fields []*field.Field
}

func newStandard(spec kindSpec) *Standard {
	s := &Standard{
		kind:   spec.kind,
		idents: spec.fields,
		fields: make([]*field.Field, len(spec.fields)),
	}
	for i, id := range spec.fields {
		f := field.New(field.PascalCase(id), value.Value{})
		s.fields[i] = &f
	}
	return s
}

func (s *Standard) Kind() string { return s.kind }

func (s *Standard) Get(name string) (value.Value, bool) {
	f := lookup(s.fields, name)
	if f == nil {
		return value.Value{}, false
	}
	return f.Value, true
}

func (s *Standard) Field(name string) *field.Field { return lookup(s.fields, name) }
func (s *Standard) Fields() []*field.Field         { return s.fields }

func (s *Standard) Configure(n doc.Node, env Env) {
	configureFields(n, env, s.idents, s.fields)
}
