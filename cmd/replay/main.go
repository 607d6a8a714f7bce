package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "shipsim.dev/internal/persistence/log"
	"shipsim.dev/internal/scripting"
	"shipsim.dev/internal/sim/host"
	"shipsim.dev/internal/sim/network"
	"shipsim.dev/internal/sim/tuning"
)

func main() {
	var (
		runDir   = flag.String("run_dir", "", "run directory written by shipsim (contains run.json)")
		docPath  = flag.String("doc", "", "override the networks document recorded in run.json")
		runPath  = flag.String("run", "", "run.yaml used for script limits (optional)")
		fromTick = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick   = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		summary  = flag.Bool("summary", false, "print the manifest and tick count without replaying")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run_dir")
		os.Exit(2)
	}

	m, err := persistlog.ReadManifest(*runDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read manifest:", err)
		os.Exit(1)
	}
	if m.TickLogDir == "" {
		fmt.Fprintln(os.Stderr, "run has no tick log")
		os.Exit(1)
	}
	if *docPath != "" {
		m.Doc = *docPath
	}
	ticksDir := filepath.Join(*runDir, m.TickLogDir)

	fmt.Printf("run doc=%s runner=%s inputs=%d started=%s\n", m.Doc, m.Runner, len(m.Inputs), m.StartedAt.Format("2006-01-02T15:04:05Z"))
	if *summary {
		var n, faults int
		err := persistlog.ReadTicks(ticksDir, func(e network.TickLogEntry) error {
			n++
			faults += len(e.Faults)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read ticks:", err)
			os.Exit(1)
		}
		fmt.Printf("ticks=%d faults=%d\n", n, faults)
		return
	}

	tune, err := tuning.Load(*runPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load run config:", err)
		os.Exit(1)
	}
	ns, _, err := network.LoadFile(m.Doc, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load document:", err)
		os.Exit(1)
	}
	if err := host.ApplyInputs(ns, m.Inputs); err != nil {
		fmt.Fprintln(os.Stderr, "inputs:", err)
		os.Exit(1)
	}
	cache, err := scripting.NewProgramCache(tune.ScriptCacheSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "script cache:", err)
		os.Exit(1)
	}
	newRunner, err := scripting.FactoryFor(m.Runner, scripting.Options{Cache: cache, StepTimeout: tune.StepTimeout()})
	if err != nil {
		fmt.Fprintln(os.Stderr, "runner:", err)
		os.Exit(1)
	}
	// Chips that failed to load in the recorded run fail the same way here.
	_ = ns.LoadChips(newRunner)

	checked, err := verify(ns, ticksDir, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks\n", checked)
}

var errStop = errors.New("stop")

// verify steps ns once per logged tick and compares digests from verifyFrom
// on. A toTick of 0 means the whole log.
func verify(ns *network.Networks, ticksDir string, verifyFrom, toTick uint64) (uint64, error) {
	var checked uint64
	err := persistlog.ReadTicks(ticksDir, func(entry network.TickLogEntry) error {
		if toTick != 0 && entry.Tick > toTick {
			return errStop
		}
		if entry.Tick != ns.CurrentTick() {
			return fmt.Errorf("tick mismatch: want=%d got=%d", ns.CurrentTick(), entry.Tick)
		}
		tick, gotDigest := ns.Step()
		if tick < verifyFrom {
			return nil
		}
		checked++
		if gotDigest != entry.Digest {
			return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
		}
		return nil
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	return checked, err
}
