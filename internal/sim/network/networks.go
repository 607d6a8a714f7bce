package network

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"shipsim.dev/internal/sim/device"
	"shipsim.dev/internal/sim/field"
)

var (
	ErrDuplicateNetwork = errors.New("duplicate network")
	ErrUnknownNetwork   = errors.New("unknown network")
)

// Relay copies matching globals from Src to Dst once per tick.
type Relay struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

type TickSink interface {
	WriteTick(TickLogEntry) error
}

type TickLogEntry struct {
	Tick        uint64        `json:"tick"`
	Digest      string        `json:"digest"`
	ChipSteps   int           `json:"chip_steps"`
	RelayCopies int           `json:"relay_copies"`
	Faults      []ChipFault   `json:"faults,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

type ChipFault struct {
	Network string `json:"network"`
	Error   string `json:"error"`
}

// Networks owns every network and the relay list. It is not safe for
// concurrent use; a single host loop drives it.
type Networks struct {
	nets   map[string]*Network
	names  []string
	relays []Relay
	sinks  []TickSink
	logger *log.Logger

	tick uint64
}

func NewNetworks(logger *log.Logger) *Networks {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Networks{
		nets:   map[string]*Network{},
		logger: logger,
	}
}

func (ns *Networks) Add(n *Network) error {
	if _, ok := ns.nets[n.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNetwork, n.Name())
	}
	ns.nets[n.Name()] = n
	i := sort.SearchStrings(ns.names, n.Name())
	ns.names = append(ns.names, "")
	copy(ns.names[i+1:], ns.names[i:])
	ns.names[i] = n.Name()
	return nil
}

func (ns *Networks) Network(name string) (*Network, bool) {
	n, ok := ns.nets[name]
	return n, ok
}

// Names lists the networks in tick order.
func (ns *Networks) Names() []string {
	return append([]string(nil), ns.names...)
}

func (ns *Networks) Relays() []Relay {
	return append([]Relay(nil), ns.relays...)
}

func (ns *Networks) AddRelay(src, dst string) error {
	for _, name := range []string{src, dst} {
		if _, ok := ns.nets[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
		}
	}
	ns.relays = append(ns.relays, Relay{Src: src, Dst: dst})
	return nil
}

// RemoveRelay drops every src->dst edge and reports whether one existed.
func (ns *Networks) RemoveRelay(src, dst string) bool {
	kept := ns.relays[:0]
	removed := false
	for _, r := range ns.relays {
		if r.Src == src && r.Dst == dst {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	ns.relays = kept
	return removed
}

func (ns *Networks) AddSink(s TickSink) {
	if s != nil {
		ns.sinks = append(ns.sinks, s)
	}
}

func (ns *Networks) CurrentTick() uint64 { return ns.tick }

// LoadChips loads every script chip once before ticking starts. Failures are
// logged and returned joined; the failing chips stay unloaded.
func (ns *Networks) LoadChips(newRunner device.RunnerFactory) error {
	var errs []error
	for _, name := range ns.names {
		for i, r := range ns.nets[name].racks {
			if err := r.LoadChips(newRunner); err != nil {
				ns.logger.Printf("chip load failed network=%s rack=%d err=%v", name, i, err)
				errs = append(errs, fmt.Errorf("network %s rack %d: %w", name, i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Step runs one tick. Every phase finishes on all networks before the next
// one starts. It returns the tick that was run and the digest of the state
// it produced.
func (ns *Networks) Step() (tick uint64, digest string) {
	start := time.Now()
	tick = ns.tick
	entry := TickLogEntry{Tick: tick}

	for _, name := range ns.names {
		ns.nets[name].push()
	}
	for _, name := range ns.names {
		res := ns.nets[name].step()
		entry.ChipSteps += res.Steps
		for _, err := range res.Faults {
			ns.logger.Printf("chip fault tick=%d network=%s err=%v", tick, name, err)
			entry.Faults = append(entry.Faults, ChipFault{Network: name, Error: err.Error()})
		}
	}
	for _, name := range ns.names {
		ns.nets[name].pull()
	}
	entry.RelayCopies = ns.relay()
	for _, name := range ns.names {
		ns.nets[name].reflect()
	}

	ns.tick++
	digest = ns.stateDigest(tick)
	entry.Digest = digest
	entry.Duration = time.Since(start)
	for _, s := range ns.sinks {
		if err := s.WriteTick(entry); err != nil {
			ns.logger.Printf("tick sink error tick=%d err=%v", tick, err)
		}
	}
	return tick, digest
}

// relay merges each source bus into its destination. Sources are read from
// snapshots taken before the first edge is applied.
func (ns *Networks) relay() int {
	if len(ns.relays) == 0 {
		return 0
	}
	snaps := make(map[string][]field.Field, len(ns.relays))
	for _, r := range ns.relays {
		if _, ok := snaps[r.Src]; ok {
			continue
		}
		if src, ok := ns.nets[r.Src]; ok {
			snaps[r.Src] = src.snapshot()
		}
	}
	copied := 0
	for _, r := range ns.relays {
		dst, ok := ns.nets[r.Dst]
		if !ok {
			continue
		}
		copied += dst.merge(snaps[r.Src])
	}
	return copied
}
