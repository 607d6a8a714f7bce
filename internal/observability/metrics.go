package observability

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"shipsim.dev/internal/sim/network"
)

// SimCollector bundles the Prometheus metrics of a simulation run. It
// implements network.TickSink.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	ChipSteps    prometheus.Counter
	ChipFaults   *prometheus.CounterVec
	RelayCopies  prometheus.Counter
	TickDuration prometheus.Histogram

	Networks    prometheus.Gauge
	Devices     prometheus.Gauge
	Diagnostics prometheus.Gauge
}

// NewSimCollector registers the simulation metrics against reg, defaulting to
// the global registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipsim_ticks_total",
		Help: "Simulation ticks run.",
	}), "shipsim_ticks_total")
	if err != nil {
		return nil, err
	}
	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipsim_chip_steps_total",
		Help: "Script chip steps executed.",
	}), "shipsim_chip_steps_total")
	if err != nil {
		return nil, err
	}
	faults, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipsim_chip_faults_total",
		Help: "Script chip steps that faulted, labeled by network.",
	}, []string{"network"}), "shipsim_chip_faults_total")
	if err != nil {
		return nil, err
	}
	copies, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipsim_relay_copies_total",
		Help: "Global values copied across relays.",
	}), "shipsim_relay_copies_total")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipsim_tick_duration_seconds",
		Help:    "Wall time of one tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}), "shipsim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	nets, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shipsim_networks",
		Help: "Networks loaded from the document.",
	}), "shipsim_networks")
	if err != nil {
		return nil, err
	}
	devices, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shipsim_devices",
		Help: "Devices loaded across all networks.",
	}), "shipsim_devices")
	if err != nil {
		return nil, err
	}
	diags, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shipsim_load_diagnostics",
		Help: "Document entries skipped or adjusted during load.",
	}), "shipsim_load_diagnostics")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:     gatherer,
		Ticks:        ticks,
		ChipSteps:    steps,
		ChipFaults:   faults,
		RelayCopies:  copies,
		TickDuration: duration,
		Networks:     nets,
		Devices:      devices,
		Diagnostics:  diags,
	}, nil
}

func (c *SimCollector) WriteTick(e network.TickLogEntry) error {
	if c == nil {
		return nil
	}
	c.Ticks.Inc()
	c.ChipSteps.Add(float64(e.ChipSteps))
	c.RelayCopies.Add(float64(e.RelayCopies))
	c.TickDuration.Observe(e.Duration.Seconds())
	for _, f := range e.Faults {
		c.ChipFaults.WithLabelValues(f.Network).Inc()
	}
	return nil
}

// RecordLoad sets the load gauges from a freshly loaded document.
func (c *SimCollector) RecordLoad(ns *network.Networks, diags []network.Diagnostic) {
	if c == nil || ns == nil {
		return
	}
	names := ns.Names()
	devices := 0
	for _, name := range names {
		n, _ := ns.Network(name)
		devices += len(n.Devices())
	}
	c.Networks.Set(float64(len(names)))
	c.Devices.Set(float64(devices))
	c.Diagnostics.Set(float64(len(diags)))
}

// WriteText dumps every gathered metric family in the Prometheus text format.
func (c *SimCollector) WriteText(w io.Writer) error {
	mfs, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
