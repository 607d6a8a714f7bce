package device

import (
	"errors"
	"fmt"

	"shipsim.dev/internal/sim/doc"
	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

const RackKind = "rack"

type ModuleKind uint8

const (
	ModuleReader ModuleKind = iota
	ModuleSocket
	ModuleCore
)

const (
	ChipReaderTag = "chip_reader"
	SocketCoreTag = "socket_core"
	ChipCoreTag   = "chip_core"
)

var moduleTags = map[string]ModuleKind{
	ChipReaderTag: ModuleReader,
	SocketCoreTag: ModuleSocket,
	ChipCoreTag:   ModuleCore,
}

func (k ModuleKind) String() string {
	switch k {
	case ModuleCore:
		return ChipCoreTag
	case ModuleSocket:
		return SocketCoreTag
	default:
		return ChipReaderTag
	}
}

// Slots is the number of chip slots the module provides.
func (k ModuleKind) Slots() int {
	switch k {
	case ModuleCore:
		return 3
	case ModuleSocket:
		return 2
	default:
		return 1
	}
}

var rackIdents = []string{"current_state", "on_state", "off_state", "button"}

// Rack owns four control fields and a module of chip slots. Load, Step and
// the global exchange fan out over the slots in slot order.
type Rack struct {
	fields []*field.Field
	module ModuleKind
	slots  []*Chip
}

func NewRack() *Rack {
	r := &Rack{
		module: ModuleReader,
		slots:  []*Chip{NewChip("")},
	}
	for _, id := range rackIdents {
		f := field.New(field.PascalCase(id), value.Value{})
		r.fields = append(r.fields, &f)
	}
	return r
}

func (r *Rack) Kind() string       { return RackKind }
func (r *Rack) Module() ModuleKind { return r.module }
func (r *Rack) Slots() []*Chip     { return r.slots }

func (r *Rack) Get(name string) (value.Value, bool) {
	f := r.Field(name)
	if f == nil {
		return value.Value{}, false
	}
	return f.Value, true
}

// Field searches the rack's own fields first, then each slot's chip fields.
func (r *Rack) Field(name string) *field.Field {
	if f := lookup(r.fields, name); f != nil {
		return f
	}
	for _, c := range r.slots {
		if f := c.Field(name); f != nil {
			return f
		}
	}
	return nil
}

func (r *Rack) Fields() []*field.Field {
	out := make([]*field.Field, 0, len(r.fields)+len(r.slots))
	out = append(out, r.fields...)
	for _, c := range r.slots {
		out = append(out, c.Fields()...)
	}
	return out
}

func (r *Rack) Configure(n doc.Node, env Env) {
	configureFields(n, env, rackIdents, r.fields)
	if n == nil {
		return
	}
	mod, ok := n.Get("module")
	if !ok {
		return
	}
	tag, ok := mod.Tag()
	if !ok {
		env.warnf("rack module has no type tag, using %s", ChipReaderTag)
		return
	}
	kind, ok := moduleTags[tag]
	if !ok {
		env.warnf("unknown rack module %q, using %s", tag, ChipReaderTag)
		return
	}
	r.module = kind
	r.slots = make([]*Chip, kind.Slots())
	for i := range r.slots {
		r.slots[i] = configureSlot(mod, fmt.Sprintf("slot%d", i+1), env)
	}
}

func configureSlot(mod doc.Node, key string, env Env) *Chip {
	n, ok := mod.Get(key)
	if !ok {
		return NewChip("")
	}
	tag, ok := n.Tag()
	if !ok {
		return NewChip("")
	}
	c := NewChip(tag)
	if c.Kind() == ChipNone {
		env.warnf("%s: unknown chip type %q", key, tag)
		return c
	}
	c.Configure(n, env)
	return c
}

// LoadChips loads every slot and joins the failures.
func (r *Rack) LoadChips(newRunner RunnerFactory) error {
	var errs []error
	for _, c := range r.slots {
		if err := c.Load(newRunner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StepResult counts what one rack step did.
type StepResult struct {
	Steps  int
	Faults []error
}

func (r *Rack) Step() StepResult {
	var res StepResult
	for _, c := range r.slots {
		stepped, err := c.Step()
		if stepped {
			res.Steps++
		}
		if err != nil {
			res.Faults = append(res.Faults, err)
		}
	}
	return res
}

func (r *Rack) UpdateGlobals(globals []field.Field) {
	for _, c := range r.slots {
		c.UpdateGlobals(globals)
	}
}

// Globals concatenates every slot's globals in slot order.
func (r *Rack) Globals() []field.Field {
	var out []field.Field
	for _, c := range r.slots {
		out = append(out, c.Globals()...)
	}
	return out
}
