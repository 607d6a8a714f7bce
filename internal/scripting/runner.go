// Package scripting runs chip programs written in JavaScript.
//
// A chip script defines a step function. Before each call the network bus is
// exposed as the object g; whatever step leaves in g is read back as the
// chip's globals:
//
//	var n = 0;
//	function step(g) { n++; g.Counter = n; if (n >= 10) g.ChipWait = 0; }
//
// Plain JS operators use float64. The yolol object exposes the fixed-point
// value engine for exact results; its div and mod throw on a zero divisor,
// which faults the chip for that tick:
//
//	g.Ratio = yolol.div(g.Fuel, g.Capacity);
package scripting

import (
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"

	"shipsim.dev/internal/sim/device"
	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

const (
	defaultStepTimeout = 50 * time.Millisecond
	initTimeout        = time.Second
	stepFunc           = "step"
)

type Options struct {
	Cache       *ProgramCache
	StepTimeout time.Duration
	Logger      *log.Logger
}

// Runner is a device.CodeRunner backed by a sandboxed goja runtime. Each
// chip gets its own Runner and therefore its own script state.
type Runner struct {
	opts    Options
	runtime *goja.Runtime
	step    goja.Callable
	path    string

	in  []field.Field
	obj *goja.Object
}

func NewRunner(opts Options) *Runner {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = defaultStepTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Runner{opts: opts}
}

// Factory returns a device.RunnerFactory producing Runners that share opts.
func Factory(opts Options) device.RunnerFactory {
	return func() device.CodeRunner { return NewRunner(opts) }
}

// FactoryFor picks a runner by name: "js" (the default) or "nop".
func FactoryFor(kind string, opts Options) (device.RunnerFactory, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "js", "":
		return Factory(opts), nil
	case "nop":
		return device.NewNopRunner, nil
	default:
		return nil, fmt.Errorf("unsupported runner: %s", kind)
	}
}

func (r *Runner) Parse(path string) error {
	prog, err := r.opts.Cache.Load(path)
	if err != nil {
		return err
	}
	rt := goja.New()
	r.sandbox(rt, path)
	r.runtime = rt
	err = r.runWithTimeout(initTimeout, func() error {
		_, err := rt.RunProgram(prog)
		return err
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	fn := rt.Get(stepFunc)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return fmt.Errorf("%s() is not defined", stepFunc)
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return fmt.Errorf("%s is not a function", stepFunc)
	}
	r.step = callable
	r.path = path
	return nil
}

func (r *Runner) sandbox(rt *goja.Runtime, path string) {
	logger := r.opts.Logger
	rt.Set("print", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		logger.Printf("script=%s %s", path, strings.Join(parts, " "))
		return goja.Undefined()
	})
	rt.Set("require", goja.Undefined())
	rt.Set("eval", goja.Undefined())
	rt.Set("yolol", valueHelpers(rt))
}

// UpdateGlobals replaces the pushed bus and forgets the previous step's
// results until the next Step.
func (r *Runner) UpdateGlobals(globals []field.Field) {
	r.in = field.Clone(globals)
	r.obj = nil
}

func (r *Runner) Step() error {
	if r.step == nil {
		return fmt.Errorf("runner not parsed")
	}
	obj := r.runtime.NewObject()
	for _, g := range r.in {
		if err := obj.Set(g.Name(), toJS(g.Value)); err != nil {
			return err
		}
	}
	err := r.runWithTimeout(r.opts.StepTimeout, func() error {
		_, err := r.step(goja.Undefined(), obj)
		return err
	})
	if err != nil {
		return err
	}
	r.obj = obj
	return nil
}

// Globals reads back the object seen by the last step: pushed names first,
// in bus order, then names the script added, sorted. Pushed values the script
// left alone come back exactly as pushed. Without a step since the last
// UpdateGlobals there is nothing to report.
func (r *Runner) Globals() []field.Field {
	if r.obj == nil {
		return nil
	}
	keys := r.obj.Keys()
	seen := make(map[string]bool, len(r.in))
	out := make([]field.Field, 0, len(keys))
	for _, g := range r.in {
		seen[g.Name()] = true
		jv := r.obj.Get(g.Name())
		if unchanged(jv, g.Value) {
			out = append(out, g)
			continue
		}
		if v, ok := fromJS(jv); ok {
			out = append(out, field.New(g.Name(), v))
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if seen[k] {
			continue
		}
		if v, ok := fromJS(r.obj.Get(k)); ok {
			out = append(out, field.New(k, v))
		}
	}
	return out
}

func toJS(v value.Value) any {
	if s, ok := v.AsText(); ok {
		return s
	}
	n, _ := v.AsInt()
	if n.IsSentinel() {
		return math.NaN()
	}
	return n.Float()
}

// unchanged reports whether jv is still what toJS produced for pushed.
func unchanged(jv goja.Value, pushed value.Value) bool {
	if jv == nil || goja.IsUndefined(jv) || goja.IsNull(jv) {
		return false
	}
	var f float64
	switch x := jv.Export().(type) {
	case string:
		s, ok := pushed.AsText()
		return ok && s == x
	case int64:
		f = float64(x)
	case float64:
		f = x
	default:
		return false
	}
	n, ok := pushed.AsInt()
	if !ok {
		return false
	}
	if n.IsSentinel() {
		return math.IsNaN(f)
	}
	return f == n.Float()
}

func fromJS(v goja.Value) (value.Value, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return value.Value{}, false
	}
	switch x := v.Export().(type) {
	case string:
		return value.FromString(x), true
	case bool:
		return value.FromBool(x), true
	case int64:
		return value.FromInt64(x), true
	case float64:
		return value.FromFloat(x), true
	}
	return value.Value{}, false
}

func (r *Runner) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.runtime.Interrupt("step timeout")
		err := <-done
		r.runtime.ClearInterrupt()
		if err != nil {
			return fmt.Errorf("script timed out after %s: %w", timeout, err)
		}
		return fmt.Errorf("script timed out after %s", timeout)
	}
}
