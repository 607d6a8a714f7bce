package device

import "shipsim.dev/internal/sim/field"

// CodeRunner executes the program attached to a script chip. Implementations
// own their interpreter state; the chip only moves value snapshots across.
type CodeRunner interface {
	// Parse compiles the source at path.
	Parse(path string) error
	// Step advances the program by one tick.
	Step() error
	// UpdateGlobals pushes the network bus into the program.
	UpdateGlobals(globals []field.Field)
	// Globals reports the program's global variables after a step.
	Globals() []field.Field
}

// RunnerFactory returns a fresh CodeRunner for one chip.
type RunnerFactory func() CodeRunner

// NopRunner accepts any source, never changes anything and echoes back the
// globals it was given.
type NopRunner struct {
	Steps   int
	globals []field.Field
}

func NewNopRunner() CodeRunner { return &NopRunner{} }

func (r *NopRunner) Parse(string) error { return nil }

func (r *NopRunner) Step() error {
	r.Steps++
	return nil
}

func (r *NopRunner) UpdateGlobals(globals []field.Field) { r.globals = field.Clone(globals) }
func (r *NopRunner) Globals() []field.Field              { return field.Clone(r.globals) }
