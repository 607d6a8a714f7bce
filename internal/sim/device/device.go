// Package device holds the closed set of ship device kinds. Every kind
// exposes named Fields; racks additionally own chip slots.
package device

import (
	"fmt"
	"sort"

	"shipsim.dev/internal/sim/doc"
	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

type Device interface {
	// Kind is the document type tag, e.g. "button" or "rack".
	Kind() string
	Get(name string) (value.Value, bool)
	// Field returns the mutable field for name, or nil.
	Field(name string) *field.Field
	// Fields lists every field the device declares, in declaration order.
	Fields() []*field.Field
	Configure(n doc.Node, env Env)
}

// Env carries load-time context into Configure.
type Env struct {
	// BaseDir resolves relative script paths.
	BaseDir string
	// Warnf receives non-fatal configuration diagnostics.
	Warnf func(format string, args ...any)
}

func (e Env) warnf(format string, args ...any) {
	if e.Warnf != nil {
		e.Warnf(format, args...)
	}
}

var registry = buildRegistry()

func buildRegistry() map[string]func() Device {
	r := make(map[string]func() Device, len(catalog)+1)
	for _, spec := range catalog {
		spec := spec
		r[spec.kind] = func() Device { return newStandard(spec) }
	}
	r[RackKind] = func() Device { return NewRack() }
	return r
}

// New returns a zero-value device for tag; ok is false for unknown tags.
func New(tag string) (Device, bool) {
	mk, ok := registry[tag]
	if !ok {
		return nil, false
	}
	return mk(), true
}

// Build constructs and configures the device described by n.
func Build(n doc.Node, env Env) (Device, error) {
	tag, ok := n.Tag()
	if !ok {
		return nil, fmt.Errorf("device has no type tag")
	}
	d, ok := New(tag)
	if !ok {
		return nil, fmt.Errorf("unknown device type %q", tag)
	}
	d.Configure(n, env)
	return d, nil
}

func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// configureFields applies display-name overrides and the optional "values"
// mapping. idents[i] is the snake_case identifier of fs[i].
func configureFields(n doc.Node, env Env, idents []string, fs []*field.Field) {
	for i, f := range fs {
		name := field.PascalCase(idents[i])
		if n != nil {
			if s, ok := doc.GetStr(n, name); ok && s != "" {
				name = s
			}
		}
		f.SetName(name)
	}
	entries, ok := doc.GetMap(n, "values")
	if !ok {
		return
	}
	for _, e := range entries {
		s, ok := e.Value.Str()
		if !ok {
			env.warnf("values.%s: not a scalar", e.Key)
			continue
		}
		hit := false
		for i, f := range fs {
			if f.Matches(e.Key) || field.PascalCase(idents[i]) == e.Key {
				f.Value = value.Parse(s)
				hit = true
			}
		}
		if !hit {
			env.warnf("values.%s: no such field", e.Key)
		}
	}
}

func lookup(fs []*field.Field, name string) *field.Field {
	for _, f := range fs {
		if f.Matches(name) {
			return f
		}
	}
	return nil
}
