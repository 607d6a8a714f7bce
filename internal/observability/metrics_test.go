package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"shipsim.dev/internal/sim/network"
)

func TestSimCollector_WriteTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	entries := []network.TickLogEntry{
		{Tick: 0, ChipSteps: 3, RelayCopies: 2, Duration: time.Millisecond},
		{Tick: 1, ChipSteps: 1, Faults: []network.ChipFault{{Network: "engine", Error: "boom"}}},
	}
	for _, e := range entries {
		if err := c.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if got := testutil.ToFloat64(c.Ticks); got != 2 {
		t.Fatalf("ticks=%v", got)
	}
	if got := testutil.ToFloat64(c.ChipSteps); got != 4 {
		t.Fatalf("chip steps=%v", got)
	}
	if got := testutil.ToFloat64(c.RelayCopies); got != 2 {
		t.Fatalf("relay copies=%v", got)
	}
	if got := testutil.ToFloat64(c.ChipFaults.WithLabelValues("engine")); got != 1 {
		t.Fatalf("faults=%v", got)
	}
	if n := histogramCount(t, reg, "shipsim_tick_duration_seconds"); n != 2 {
		t.Fatalf("duration samples=%d", n)
	}
}

func TestSimCollector_ReRegisterReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	a.Ticks.Inc()
	if got := testutil.ToFloat64(b.Ticks); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestSimCollector_RecordLoadAndWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	ns := network.NewNetworks(nil)
	_ = ns.Add(network.New("a"))
	_ = ns.Add(network.New("b"))
	c.RecordLoad(ns, []network.Diagnostic{{Path: "networks[2]", Message: "skipped"}})
	if got := testutil.ToFloat64(c.Networks); got != 2 {
		t.Fatalf("networks=%v", got)
	}
	if got := testutil.ToFloat64(c.Diagnostics); got != 1 {
		t.Fatalf("diagnostics=%v", got)
	}

	var buf bytes.Buffer
	if err := c.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "shipsim_networks 2") {
		t.Fatalf("text dump missing gauge:\n%s", buf.String())
	}
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracing_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Writer: &buf}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	ShutdownWithTimeout(context.Background(), shutdown, nil)
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		return sampleCount(mf)
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func sampleCount(mf *dto.MetricFamily) uint64 {
	var total uint64
	for _, m := range mf.GetMetric() {
		total += m.GetHistogram().GetSampleCount()
	}
	return total
}
