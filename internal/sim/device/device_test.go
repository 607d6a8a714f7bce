package device

import (
	"fmt"
	"strings"
	"testing"

	"shipsim.dev/internal/sim/doc"
	"shipsim.dev/internal/sim/value"
)

func parse(t *testing.T, src string) doc.Node {
	t.Helper()
	n, err := doc.ParseYAML([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return n
}

type warnings []string

func (w *warnings) env(base string) Env {
	return Env{BaseDir: base, Warnf: func(format string, args ...any) {
		*w = append(*w, fmt.Sprintf(format, args...))
	}}
}

func TestRegistry_AllKindsConstruct(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != len(catalog)+1 {
		t.Fatalf("kinds=%d want %d", len(kinds), len(catalog)+1)
	}
	for _, k := range kinds {
		d, ok := New(k)
		if !ok {
			t.Fatalf("New(%q) failed", k)
		}
		if d.Kind() != k {
			t.Fatalf("kind=%q want %q", d.Kind(), k)
		}
		if len(d.Fields()) == 0 {
			t.Fatalf("%s has no fields", k)
		}
	}
	if _, ok := New("warp_drive"); ok {
		t.Fatalf("unknown tag must not construct")
	}
}

func TestBuild_DefaultNamesOverridesAndValues(t *testing.T) {
	var w warnings
	n := parse(t, `
!button
ButtonState: door_button
values:
  door_button: 1
  ButtonStyle: "2"
  Missing: 3
`)
	d, err := Build(n, w.env(""))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d.Field("ButtonState") != nil {
		t.Fatalf("overridden default name must not resolve")
	}
	v, ok := d.Get("DOOR_BUTTON")
	if !ok || !v.Equal(value.FromInt64(1)) {
		t.Fatalf("door_button=%v ok=%v", v, ok)
	}
	v, ok = d.Get("buttonstyle")
	if !ok || !v.Equal(value.FromInt64(2)) {
		t.Fatalf("ButtonStyle=%v ok=%v", v, ok)
	}
	if _, ok := d.Get("ButtonOnStateValue"); !ok {
		t.Fatalf("default PascalCase name missing")
	}
	if len(w) != 1 || !strings.Contains(w[0], "Missing") {
		t.Fatalf("warnings=%v", w)
	}
}

func TestBuild_UnknownOrMissingTag(t *testing.T) {
	if _, err := Build(parse(t, "!warp_drive {}"), Env{}); err == nil {
		t.Fatalf("expected unknown tag error")
	}
	if _, err := Build(parse(t, "name: x"), Env{}); err == nil {
		t.Fatalf("expected missing tag error")
	}
}

func TestMainFlightComputer_ThrusterLevels(t *testing.T) {
	d, _ := New("main_flight_computer")
	if got := len(d.Fields()); got != 52 {
		t.Fatalf("fields=%d want 52", got)
	}
	if d.Field("ThrusterPowerLevel50") == nil || d.Field("FcuMfcIo2") == nil {
		t.Fatalf("missing expected fields")
	}
}
