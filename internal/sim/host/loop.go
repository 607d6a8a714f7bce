// Package host drives Networks at a fixed tick rate.
package host

import (
	"context"
	"io"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Stepper is the part of network.Networks the loop needs.
type Stepper interface {
	Step() (tick uint64, digest string)
}

type Config struct {
	// TickRateHz <= 0 runs ticks back to back.
	TickRateHz int
	// MaxTicks stops the loop after that many ticks; 0 means unbounded.
	MaxTicks uint64
	Logger   *log.Logger
	Tracer   trace.Tracer
}

type Loop struct {
	cfg  Config
	sim  Stepper
	last string
	runs uint64
}

func NewLoop(sim Stepper, cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("shipsim/host")
	}
	return &Loop{cfg: cfg, sim: sim}
}

// Ticks is the number of ticks this loop has run.
func (l *Loop) Ticks() uint64 { return l.runs }

// LastDigest is the digest returned by the most recent tick.
func (l *Loop) LastDigest() string { return l.last }

// Run ticks until ctx is done or MaxTicks is reached. Reaching MaxTicks is a
// clean stop and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	ctx, span := l.cfg.Tracer.Start(ctx, "host.Run")
	defer span.End()

	var tick <-chan time.Time
	if l.cfg.TickRateHz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(l.cfg.TickRateHz))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if l.cfg.MaxTicks > 0 && l.runs >= l.cfg.MaxTicks {
			span.SetAttributes(attribute.Int64("ticks", int64(l.runs)))
			return nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		l.stepOnce(ctx)
	}
}

func (l *Loop) stepOnce(ctx context.Context) {
	_, span := l.cfg.Tracer.Start(ctx, "sim.Step")
	defer span.End()
	n, digest := l.sim.Step()
	l.runs++
	l.last = digest
	span.SetAttributes(
		attribute.Int64("tick", int64(n)),
		attribute.String("digest", digest),
	)
	if l.runs%1000 == 0 {
		l.cfg.Logger.Printf("tick=%d digest=%s", n, digest)
	}
}
