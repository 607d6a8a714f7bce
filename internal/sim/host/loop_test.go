package host

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type countingSim struct{ n uint64 }

func (s *countingSim) Step() (uint64, string) {
	t := s.n
	s.n++
	return t, fmt.Sprintf("d%d", t)
}

func TestLoop_MaxTicksFlatOut(t *testing.T) {
	sim := &countingSim{}
	l := NewLoop(sim, Config{MaxTicks: 5})
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if l.Ticks() != 5 || sim.n != 5 || l.LastDigest() != "d4" {
		t.Fatalf("ticks=%d sim=%d last=%q", l.Ticks(), sim.n, l.LastDigest())
	}
}

func TestLoop_CancelStopsTicker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	l := NewLoop(&countingSim{}, Config{TickRateHz: 1000})
	err := l.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	if l.Ticks() == 0 {
		t.Fatalf("no ticks ran before cancel")
	}
}

func TestLoop_SpansPerTick(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	l := NewLoop(&countingSim{}, Config{MaxTicks: 3, Tracer: tp.Tracer("test")})
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	spans := rec.Ended()
	if len(spans) != 4 {
		t.Fatalf("spans=%d want 3 ticks + run", len(spans))
	}
	root := spans[len(spans)-1]
	if root.Name() != "host.Run" {
		t.Fatalf("last span=%s", root.Name())
	}
	for _, s := range spans[:3] {
		if s.Name() != "sim.Step" || s.Parent().SpanID() != root.SpanContext().SpanID() {
			t.Fatalf("span %s not a child of host.Run", s.Name())
		}
	}
}
