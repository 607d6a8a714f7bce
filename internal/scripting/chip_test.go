package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shipsim.dev/internal/sim/network"
	"shipsim.dev/internal/sim/value"
)

type faultSink struct{ entries []network.TickLogEntry }

func (s *faultSink) WriteTick(e network.TickLogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

const chipDoc = `
version: "1"
networks:
  - name: main
    globals: {X: 1, Y: 0, ChipWait: 1}
    devices:
      - !rack
        module: !chip_reader
          slot1: !yolol_chip {script: chip.js}
`

// loadShip loads chipDoc with script as the only chip program.
func loadShip(t *testing.T, script string) (*network.Networks, *network.Network) {
	t.Helper()
	dir := t.TempDir()
	writeScript(t, dir, "chip.js", script)
	p := filepath.Join(dir, "ship.yaml")
	if err := os.WriteFile(p, []byte(chipDoc), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	ns, diags, err := network.LoadFile(p, nil)
	if err != nil || len(diags) != 0 {
		t.Fatalf("load: err=%v diags=%v", err, diags)
	}
	if err := ns.LoadChips(Factory(Options{})); err != nil {
		t.Fatalf("load chips: %v", err)
	}
	main, ok := ns.Network("main")
	if !ok {
		t.Fatalf("no main network")
	}
	return ns, main
}

func busValue(t *testing.T, n *network.Network, name string) value.Value {
	t.Helper()
	v, ok := n.Global(name)
	if !ok {
		t.Fatalf("no global %q", name)
	}
	return v
}

func TestChipRuntime_PausedChipKeepsHostInput(t *testing.T) {
	ns, main := loadShip(t, `function step(g) { g.ChipWait = 0; g.Y = g.X; }`)
	ns.Step()
	if got := busValue(t, main, "ChipWait"); got.Truthy() {
		t.Fatalf("ChipWait=%v", got)
	}
	if !main.SetGlobal("X", value.FromInt64(9)) {
		t.Fatalf("SetGlobal X failed")
	}
	ns.Step()
	ns.Step()
	if got := busValue(t, main, "X"); !got.Equal(value.FromInt64(9)) {
		t.Fatalf("X=%v, paused chip overwrote host input", got)
	}
	if got := busValue(t, main, "Y"); !got.Equal(value.FromInt64(1)) {
		t.Fatalf("Y=%v, paused chip ran", got)
	}

	main.SetGlobal("ChipWait", value.FromInt64(1))
	ns.Step()
	if got := busValue(t, main, "Y"); !got.Equal(value.FromInt64(9)) {
		t.Fatalf("Y=%v after resume", got)
	}
}

func TestChipRuntime_UntouchedMaxIntSurvivesChip(t *testing.T) {
	ns, main := loadShip(t, `function step(g) { g.Y = g.Y + 1; }`)
	main.SetGlobal("X", value.FromInt(value.MaxInt))
	ns.Step()
	if got := busValue(t, main, "X"); !got.Equal(value.FromInt(value.MaxInt)) {
		t.Fatalf("X=%v after an untouched pass", got)
	}
	if got := busValue(t, main, "Y"); !got.Equal(value.FromInt64(1)) {
		t.Fatalf("Y=%v", got)
	}
}

func TestChipRuntime_DivideByZeroFaultsTick(t *testing.T) {
	ns, main := loadShip(t, `function step(g) { g.Y = yolol.div(g.X, g.Y); }`)
	sink := &faultSink{}
	ns.AddSink(sink)
	ns.Step()
	if len(sink.entries) != 1 {
		t.Fatalf("entries=%d", len(sink.entries))
	}
	e := sink.entries[0]
	if len(e.Faults) != 1 || e.Faults[0].Network != "main" {
		t.Fatalf("entry=%+v", e)
	}
	if msg := e.Faults[0].Error; !strings.Contains(msg, "chip fault") || !strings.Contains(msg, "divide by zero") {
		t.Fatalf("fault=%q", msg)
	}
	if got := busValue(t, main, "Y"); !got.Equal(value.FromInt64(0)) {
		t.Fatalf("Y=%v, faulted step wrote the bus", got)
	}

	main.SetGlobal("Y", value.FromInt(500))
	ns.Step()
	if len(sink.entries[1].Faults) != 0 {
		t.Fatalf("unexpected fault: %+v", sink.entries[1])
	}
	if got := busValue(t, main, "Y"); !got.Equal(value.FromInt64(2)) {
		t.Fatalf("Y=%v want 2", got)
	}
}
