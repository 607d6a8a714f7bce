package device

import (
	"errors"
	"path/filepath"
	"testing"

	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

type stubRunner struct {
	parseErr error
	stepErr  error
	panicMsg string
	steps    int
	path     string
	pushed   []field.Field
	out      []field.Field
}

func (s *stubRunner) Parse(path string) error {
	s.path = path
	return s.parseErr
}

func (s *stubRunner) Step() error {
	s.steps++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.stepErr
}

func (s *stubRunner) UpdateGlobals(g []field.Field) { s.pushed = g }
func (s *stubRunner) Globals() []field.Field        { return s.out }

func factoryOf(runners ...*stubRunner) RunnerFactory {
	i := 0
	return func() CodeRunner {
		r := runners[i]
		i++
		return r
	}
}

func TestRack_ModuleArity(t *testing.T) {
	cases := []struct {
		src   string
		slots int
		kind  ModuleKind
	}{
		{"!rack {module: !chip_core {}}", 3, ModuleCore},
		{"!rack {module: !socket_core {}}", 2, ModuleSocket},
		{"!rack {module: !chip_reader {}}", 1, ModuleReader},
		{"!rack {}", 1, ModuleReader},
		{"!rack {module: !mystery_core {}}", 1, ModuleReader},
	}
	for _, tc := range cases {
		d, err := Build(parse(t, tc.src), Env{})
		if err != nil {
			t.Fatalf("%s: %v", tc.src, err)
		}
		r := d.(*Rack)
		if len(r.Slots()) != tc.slots || r.Module() != tc.kind {
			t.Fatalf("%s: slots=%d module=%s", tc.src, len(r.Slots()), r.Module())
		}
	}
}

func TestRack_ConfigureSlots(t *testing.T) {
	var w warnings
	d, err := Build(parse(t, `
!rack
Button: rack_button
module: !chip_core
  slot1: !yolol_chip
    script: scripts/a.js
    ChipWait: a_wait
  slot2: !memory_chip
    ChipField1: mem1
    values: {mem1: 7}
  slot3: !floppy {}
`), w.env("/ship"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	r := d.(*Rack)
	s := r.Slots()
	if s[0].Kind() != ChipScript || s[1].Kind() != ChipMemory || s[2].Kind() != ChipNone {
		t.Fatalf("slot kinds=%s,%s,%s", s[0].Kind(), s[1].Kind(), s[2].Kind())
	}
	if want := filepath.Join("/ship", "scripts/a.js"); s[0].Path() != want {
		t.Fatalf("path=%q want %q", s[0].Path(), want)
	}
	if v, ok := r.Get("mem1"); !ok || !v.Equal(value.FromInt64(7)) {
		t.Fatalf("mem1 via rack=%v ok=%v", v, ok)
	}
	if r.Field("a_wait") == nil || r.Field("rack_button") == nil {
		t.Fatalf("rack lookup misses chip or override fields")
	}
	if got := len(r.Fields()); got != 4+1+24 {
		t.Fatalf("fields=%d", got)
	}
	if len(w) != 1 {
		t.Fatalf("warnings=%v", w)
	}
}

func TestChip_LoadOnceAndFailureIsPermanent(t *testing.T) {
	c := NewChip(ScriptChipTag)
	c.path = "x.js"
	bad := &stubRunner{parseErr: errors.New("syntax")}
	calls := 0
	factory := func() CodeRunner {
		calls++
		return bad
	}
	if err := c.Load(factory); err == nil {
		t.Fatalf("expected load failure")
	}
	if err := c.Load(factory); err != nil || calls != 1 || c.Loaded() {
		t.Fatalf("second load: err=%v calls=%d loaded=%v", err, calls, c.Loaded())
	}
	if stepped, err := c.Step(); stepped || err != nil {
		t.Fatalf("unloaded chip stepped=%v err=%v", stepped, err)
	}

	none := NewChip(ScriptChipTag)
	if err := none.Load(factory); !errors.Is(err, ErrNoScript) {
		t.Fatalf("missing path err=%v", err)
	}
}

func TestChip_StepGatedByWait(t *testing.T) {
	c := NewChip(ScriptChipTag)
	c.path = "x.js"
	r := &stubRunner{}
	if err := c.Load(factoryOf(r)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if stepped, _ := c.Step(); !stepped || r.steps != 1 {
		t.Fatalf("default wait must allow stepping")
	}
	c.Wait().Value = value.FromInt64(0)
	if stepped, _ := c.Step(); stepped || r.steps != 1 {
		t.Fatalf("falsy wait stepped")
	}
	c.Wait().Value = value.FromString("go")
	if stepped, _ := c.Step(); stepped {
		t.Fatalf("text wait is not truthy")
	}
}

func TestChip_FaultsAreRecovered(t *testing.T) {
	c := NewChip(ScriptChipTag)
	c.path = "x.js"
	r := &stubRunner{stepErr: value.ErrDivideByZero}
	_ = c.Load(factoryOf(r))
	if _, err := c.Step(); !errors.Is(err, ErrChipFault) || !errors.Is(err, value.ErrDivideByZero) {
		t.Fatalf("step err=%v", err)
	}
	r.stepErr = nil
	r.panicMsg = "boom"
	stepped, err := c.Step()
	if !stepped || !errors.Is(err, ErrChipFault) {
		t.Fatalf("panic: stepped=%v err=%v", stepped, err)
	}
}

func TestRack_FanOutInSlotOrder(t *testing.T) {
	d, _ := Build(parse(t, `
!rack
module: !socket_core
  slot1: !yolol_chip {script: a.js}
  slot2: !yolol_chip {script: b.js}
`), Env{})
	r := d.(*Rack)
	a := &stubRunner{out: []field.Field{field.New("X", value.FromInt64(1))}}
	b := &stubRunner{out: []field.Field{field.New("X", value.FromInt64(2)), field.New("Y", value.FromInt64(3))}}
	if err := r.LoadChips(factoryOf(a, b)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.path != "a.js" || b.path != "b.js" {
		t.Fatalf("paths=%q,%q", a.path, b.path)
	}
	r.UpdateGlobals([]field.Field{field.New("X", value.FromInt64(9))})
	if len(a.pushed) != 1 || len(b.pushed) != 1 {
		t.Fatalf("globals not pushed to every slot")
	}
	a.pushed[0].Value = value.FromInt64(0)
	if !b.pushed[0].Value.Equal(value.FromInt64(9)) {
		t.Fatalf("slots share pushed globals")
	}
	if res := r.Step(); res.Steps != 2 || len(res.Faults) != 0 {
		t.Fatalf("step=%+v", res)
	}
	got := r.Globals()
	if len(got) != 3 || !got[0].Value.Equal(value.FromInt64(1)) || !got[1].Value.Equal(value.FromInt64(2)) {
		t.Fatalf("globals=%v", got)
	}
}

func TestRack_LoadJoinsErrors(t *testing.T) {
	d, _ := Build(parse(t, `
!rack
module: !socket_core
  slot1: !yolol_chip {script: a.js}
  slot2: !yolol_chip {script: b.js}
`), Env{})
	r := d.(*Rack)
	err := r.LoadChips(factoryOf(&stubRunner{parseErr: errors.New("one")}, &stubRunner{}))
	if err == nil || !r.Slots()[1].Loaded() || r.Slots()[0].Loaded() {
		t.Fatalf("err=%v", err)
	}
}
