package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"shipsim.dev/internal/observability"
	persistlog "shipsim.dev/internal/persistence/log"
	"shipsim.dev/internal/scripting"
	"shipsim.dev/internal/sim/device"
	"shipsim.dev/internal/sim/host"
	"shipsim.dev/internal/sim/network"
	"shipsim.dev/internal/sim/tuning"
)

func main() {
	var (
		docPath    = flag.String("doc", "", "networks document (default: <configs>/ship.yaml; .zst accepted)")
		configDir  = flag.String("configs", "./configs", "config directory")
		runPath    = flag.String("run", "", "path to run.yaml (default: <configs>/run.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		maxTicks   = flag.Int64("ticks", -1, "stop after N ticks (overrides max_ticks; 0 = unbounded)")
		rate       = flag.Int("rate", -1, "tick rate in Hz (overrides tick_rate_hz; 0 = flat out)")
		runnerKind = flag.String("runner", "js", "chip runner: js | nop")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		traceOn    = flag.Bool("trace", false, "export tick spans to stdout")
		metricsOut = flag.String("metrics_out", "", "write Prometheus text metrics here on exit (- for stdout)")
	)
	var inputs []string
	flag.Func("set", "initial bus value network.Name=value (repeatable)", func(s string) error {
		if _, err := host.ParseInput(s); err != nil {
			return err
		}
		inputs = append(inputs, s)
		return nil
	})
	flag.Parse()

	logger := log.New(os.Stdout, "[shipsim] ", log.LstdFlags|log.Lmicroseconds)

	rp := strings.TrimSpace(*runPath)
	if rp == "" {
		rp = filepath.Join(*configDir, "run.yaml")
	}
	tune, err := tuning.Load(rp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load run config: %v", err)
		}
		logger.Printf("run config not found (%s); using defaults", rp)
		tune = tuning.Defaults()
	}
	if *maxTicks >= 0 {
		tune.MaxTicks = uint64(*maxTicks)
	}
	if *rate >= 0 {
		tune.TickRateHz = *rate
	}

	dp := strings.TrimSpace(*docPath)
	if dp == "" {
		dp = filepath.Join(*configDir, "ship.yaml")
	}
	ns, diags, err := network.LoadFile(dp, logger)
	if err != nil {
		logger.Fatalf("load document: %v", err)
	}
	logger.Printf("loaded doc=%s networks=%d relays=%d diagnostics=%d", filepath.Base(dp), len(ns.Names()), len(ns.Relays()), len(diags))

	if err := host.ApplyInputs(ns, inputs); err != nil {
		logger.Fatalf("-set: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{Enabled: *traceOn}, logger)
	if err != nil {
		logger.Fatalf("init tracing: %v", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewSimCollector(reg)
	if err != nil {
		logger.Fatalf("metrics: %v", err)
	}
	metrics.RecordLoad(ns, diags)
	ns.AddSink(metrics)

	started := time.Now().UTC()
	runDir := filepath.Join(*dataDir, "runs", started.Format("20060102T150405Z"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("create run dir: %v", err)
	}
	manifest := persistlog.Manifest{Doc: dp, Inputs: inputs, Runner: *runnerKind, StartedAt: started}
	if abs, err := filepath.Abs(dp); err == nil {
		manifest.Doc = abs
	}
	if tune.TickLog.Enabled {
		manifest.TickLogDir = tune.TickLog.Dir
		tl := persistlog.NewTickLogger(filepath.Join(runDir, tune.TickLog.Dir))
		defer tl.Close()
		ns.AddSink(tl)
	}
	if err := persistlog.WriteManifest(runDir, manifest); err != nil {
		logger.Printf("manifest: %v", err)
	}
	dl := persistlog.NewDiagnosticLogger(runDir)
	if err := dl.WriteDiagnostics(diags); err != nil {
		logger.Printf("diagnostics log: %v", err)
	}
	_ = dl.Close()

	idx, err := openRunIndex(runDir, tune, *disableDB)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		runID, err := idx.BeginRun(dp, ns, tune, diags)
		if err != nil {
			logger.Fatalf("index run: %v", err)
		}
		ns.AddSink(idx)
		logger.Printf("indexing run=%s", runID)
	}

	newRunner, err := newRunnerFactory(*runnerKind, tune, logger)
	if err != nil {
		logger.Fatalf("runner: %v", err)
	}
	if err := ns.LoadChips(newRunner); err != nil {
		// Failed chips stay unloaded; the rest of the ship still runs.
		logger.Printf("some chips failed to load")
	}

	loop := host.NewLoop(ns, host.Config{
		TickRateHz: tune.TickRateHz,
		MaxTicks:   tune.MaxTicks,
		Logger:     logger,
	})
	logger.Printf("running rate_hz=%d max_ticks=%d runner=%s", tune.TickRateHz, tune.MaxTicks, *runnerKind)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("loop stopped: %v", err)
	}
	logger.Printf("stopped ticks=%d digest=%s", loop.Ticks(), loop.LastDigest())

	if idx != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := idx.Flush(flushCtx); err != nil {
			logger.Printf("index flush: %v", err)
		} else if n, err := idx.CountTicks(idx.RunID()); err == nil {
			st := idx.Stats()
			logger.Printf("index rows=%d dropped=%d", n, st.DropTickTotal)
		}
		cancel()
	}

	for _, name := range ns.Names() {
		n, _ := ns.Network(name)
		logger.Printf("network=%s globals=%s", name, formatGlobals(n))
	}

	if *metricsOut != "" {
		if err := writeMetrics(metrics, *metricsOut); err != nil {
			logger.Printf("metrics_out: %v", err)
		}
	}
}

func newRunnerFactory(kind string, tune tuning.Tuning, logger *log.Logger) (device.RunnerFactory, error) {
	cache, err := scripting.NewProgramCache(tune.ScriptCacheSize)
	if err != nil {
		return nil, err
	}
	return scripting.FactoryFor(kind, scripting.Options{
		Cache:       cache,
		StepTimeout: tune.StepTimeout(),
		Logger:      logger,
	})
}

func writeMetrics(c *observability.SimCollector, path string) error {
	if path == "-" {
		return c.WriteText(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.WriteText(f)
}

func formatGlobals(n *network.Network) string {
	var b strings.Builder
	for i, g := range n.Globals() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.String())
	}
	return b.String()
}
