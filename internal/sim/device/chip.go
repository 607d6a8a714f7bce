package device

import (
	"errors"
	"fmt"
	"path/filepath"

	"shipsim.dev/internal/sim/doc"
	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

type ChipKind uint8

const (
	ChipNone ChipKind = iota
	ChipMemory
	ChipScript
)

const (
	MemoryChipTag = "memory_chip"
	ScriptChipTag = "yolol_chip"

	memoryChipFields = 24
)

func (k ChipKind) String() string {
	switch k {
	case ChipMemory:
		return MemoryChipTag
	case ChipScript:
		return ScriptChipTag
	default:
		return "none"
	}
}

var (
	ErrNoScript  = errors.New("script chip has no source path")
	ErrChipFault = errors.New("chip fault")
)

// Chip occupies one rack slot. Only script chips do anything per tick;
// memory chips are plain storage exposed through their fields.
type Chip struct {
	kind   ChipKind
	idents []string
	fields []*field.Field

	path   string
	runner CodeRunner
	tried  bool
	loaded bool
}

// NewChip returns the chip for a slot tag. Unknown tags give an empty chip.
func NewChip(tag string) *Chip {
	c := &Chip{}
	switch tag {
	case MemoryChipTag:
		c.kind = ChipMemory
		for i := 1; i <= memoryChipFields; i++ {
			c.idents = append(c.idents, fmt.Sprintf("chip_field%d", i))
		}
	case ScriptChipTag:
		c.kind = ChipScript
		c.idents = []string{"chip_wait"}
	}
	for _, id := range c.idents {
		f := field.New(field.PascalCase(id), value.Value{})
		c.fields = append(c.fields, &f)
	}
	if c.kind == ChipScript {
		// A freshly inserted chip runs until its program says otherwise.
		c.fields[0].Value = value.FromBool(true)
	}
	return c
}

func (c *Chip) Kind() ChipKind         { return c.kind }
func (c *Chip) Path() string           { return c.path }
func (c *Chip) Loaded() bool           { return c.loaded }
func (c *Chip) Fields() []*field.Field { return c.fields }

func (c *Chip) Field(name string) *field.Field { return lookup(c.fields, name) }

// Wait returns the field gating Step, or nil for passive chips.
func (c *Chip) Wait() *field.Field {
	if c.kind != ChipScript {
		return nil
	}
	return c.fields[0]
}

func (c *Chip) Configure(n doc.Node, env Env) {
	configureFields(n, env, c.idents, c.fields)
	if c.kind != ChipScript {
		return
	}
	p, ok := doc.GetStr(n, "script")
	if !ok || p == "" {
		env.warnf("%s: %v", ScriptChipTag, ErrNoScript)
		return
	}
	if !filepath.IsAbs(p) && env.BaseDir != "" {
		p = filepath.Join(env.BaseDir, p)
	}
	c.path = p
}

// Load attaches and compiles a runner. Only the first call does anything; a
// chip that failed to load stays unloaded for the rest of the run.
func (c *Chip) Load(newRunner RunnerFactory) error {
	if c.kind != ChipScript {
		return nil
	}
	if c.tried {
		return nil
	}
	c.tried = true
	if c.path == "" {
		return ErrNoScript
	}
	if newRunner == nil {
		newRunner = NewNopRunner
	}
	r := newRunner()
	if err := r.Parse(c.path); err != nil {
		return fmt.Errorf("load %s: %w", c.path, err)
	}
	c.runner = r
	c.loaded = true
	return nil
}

// Step runs one tick of the program when the chip is loaded and its wait
// field is truthy. Runner errors and panics come back as ErrChipFault.
func (c *Chip) Step() (stepped bool, err error) {
	if !c.loaded || !c.fields[0].Value.Truthy() {
		return false, nil
	}
	stepped = true
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrChipFault, c.path, r)
		}
	}()
	if err := c.runner.Step(); err != nil {
		return true, fmt.Errorf("%w: %s: %w", ErrChipFault, c.path, err)
	}
	return true, nil
}

func (c *Chip) UpdateGlobals(globals []field.Field) {
	if !c.loaded {
		return
	}
	c.runner.UpdateGlobals(field.Clone(globals))
}

func (c *Chip) Globals() []field.Field {
	if !c.loaded {
		return nil
	}
	return field.Clone(c.runner.Globals())
}
