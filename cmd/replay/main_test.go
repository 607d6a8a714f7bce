package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	persistlog "shipsim.dev/internal/persistence/log"
	"shipsim.dev/internal/scripting"
	"shipsim.dev/internal/sim/network"
	"shipsim.dev/internal/sim/value"
)

const counterDoc = `
version: "1"
networks:
  - name: core
    globals: {Count: 0}
    devices:
      - !rack
        module: !chip_reader
          slot1: !yolol_chip {script: counter.js}
  - name: display
    globals: {Count: 0, Title: bridge}
    devices:
      - !information_screen
        InfoScreenContent: Count
relays:
  - {src: core, dst: display}
`

func writeCounterDoc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := "var n = 0;\nfunction step(g) { n++; g.Count = n; }\n"
	if err := os.WriteFile(filepath.Join(dir, "counter.js"), []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	p := filepath.Join(dir, "ship.yaml")
	if err := os.WriteFile(p, []byte(counterDoc), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return p
}

func loadCounter(t *testing.T, doc string) *network.Networks {
	t.Helper()
	ns, diags, err := network.LoadFile(doc, nil)
	if err != nil || len(diags) != 0 {
		t.Fatalf("load: err=%v diags=%v", err, diags)
	}
	newRunner, err := scripting.FactoryFor("js", scripting.Options{})
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if err := ns.LoadChips(newRunner); err != nil {
		t.Fatalf("load chips: %v", err)
	}
	return ns
}

func recordTicks(t *testing.T, doc string, n int) string {
	t.Helper()
	dir := t.TempDir()
	ns := loadCounter(t, doc)
	tl := persistlog.NewTickLogger(dir)
	ns.AddSink(tl)
	for i := 0; i < n; i++ {
		ns.Step()
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return dir
}

func TestVerify_ReplaysRecordedRun(t *testing.T) {
	doc := writeCounterDoc(t)
	ticks := recordTicks(t, doc, 6)

	checked, err := verify(loadCounter(t, doc), ticks, 0, 0)
	if err != nil || checked != 6 {
		t.Fatalf("checked=%d err=%v", checked, err)
	}
	checked, err = verify(loadCounter(t, doc), ticks, 2, 4)
	if err != nil || checked != 3 {
		t.Fatalf("window checked=%d err=%v", checked, err)
	}
}

func TestVerify_DetectsDivergence(t *testing.T) {
	doc := writeCounterDoc(t)
	ticks := recordTicks(t, doc, 3)

	ns := loadCounter(t, doc)
	display, _ := ns.Network("display")
	if !display.SetGlobal("Title", value.FromString("tampered")) {
		t.Fatalf("display has no Title")
	}
	_, err := verify(ns, ticks, 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("err=%v", err)
	}
}
