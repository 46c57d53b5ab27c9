package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
)

type recordingProc struct {
	mu   sync.Mutex
	got  []*models.Trade
	fail bool
}

func (r *recordingProc) Process(_ context.Context, t *models.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("downstream down")
	}
	r.got = append(r.got, t)
	return nil
}

func (r *recordingProc) delivered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type noopMetrics struct{}

func (noopMetrics) RecordMessageSent(string, string) {}
func (noopMetrics) RecordError(string) {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordLatency(string, float64) {}

func tick(sym string, ts int64) *models.Trade {
	return &models.Trade{Symbol: sym, Timestamp: ts, Price: 100, Volume: 10}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	proc := &recordingProc{}
	p := NewRealtimePipeline(proc, noopMetrics{})

	cases := []*models.Trade{
		nil,
		{Symbol: "", Timestamp: 1, Price: 1, Volume: 1},
		{Symbol: "AAPL", Timestamp: 0, Price: 1, Volume: 1},
		{Symbol: "AAPL", Timestamp: 1, Price: -1, Volume: 1},
	}
	for i, c := range cases {
		if err := p.Process(context.Background(), c); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.delivered() != 0 {
		t.Fatalf("invalid ticks reached downstream: %d", proc.delivered())
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &recordingProc{}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithMaxRPS(1))

	ctx := context.Background()
	if err := p.Process(ctx, tick("AAPL", 1)); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	// Immediate second tick for the same symbol is inside the 1s gap.
	if err := p.Process(ctx, tick("AAPL", 2)); err != nil {
		t.Fatalf("throttled tick should drop silently: %v", err)
	}
	// A different symbol is not affected.
	if err := p.Process(ctx, tick("MSFT", 3)); err != nil {
		t.Fatalf("other symbol: %v", err)
	}
	if n := proc.delivered(); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
}

func TestPipelineTransformApplied(t *testing.T) {
	proc := &recordingProc{}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithTransform(func(in *models.Trade) *models.Trade {
		out := *in
		out.Price = out.Price * 2
		return &out
	}))

	if err := p.Process(context.Background(), tick("AAPL", 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.got[0].Price != 200 {
		t.Fatalf("transform not applied, price = %v", proc.got[0].Price)
	}
}

func TestPipelineParksOnDownstreamFailureAndReplays(t *testing.T) {
	proc := &recordingProc{fail: true}
	p := NewRealtimePipeline(proc, noopMetrics{}, WithBufferSize(4))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Process(ctx, tick("AAPL", 1)); err == nil {
		t.Fatal("expected downstream error")
	}

	// Recover the downstream and let the drainer replay the parked tick.
	proc.mu.Lock()
	proc.fail = false
	proc.mu.Unlock()

	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for proc.delivered() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("parked tick was never replayed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipelineStartStopIdempotent(t *testing.T) {
	p := NewRealtimePipeline(&recordingProc{}, noopMetrics{})
	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)
	p.Stop()
	p.Stop()
}
