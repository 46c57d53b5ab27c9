package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
)

// Proc consumes validated ticks downstream of the pipeline.
type Proc interface {
	Process(ctx context.Context, t *models.Trade) error
}

const (
	defaultMaxRPS     = 20
	defaultBufferSize = 1000
	retryBackoffMin   = 50 * time.Millisecond
	retryBackoffMax   = 2 * time.Second
)

// RealtimePipeline sits between the market stream and the tick
// processor. Every tick is validated, optionally transformed, and
// rate-limited per symbol before it reaches downstream; ticks that
// fail downstream are parked in an overflow buffer and retried by a
// background drainer so a transient broker outage does not stall the
// WebSocket read loop.
type RealtimePipeline struct {
	downstream Proc
	metrics    domrepo.Metrics
	transform  func(*models.Trade) *models.Trade

	minGap   time.Duration // per-symbol spacing derived from maxRPS
	overflow chan *models.Trade

	throttleMu sync.Mutex
	lastTick   map[string]time.Time

	runMu   sync.Mutex
	running bool
	done    chan struct{}
}

type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	maxRPS    int
	bufSize   int
	transform func(*models.Trade) *models.Trade
}

// WithMaxRPS caps accepted ticks per symbol per second.
func WithMaxRPS(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.maxRPS = n
		}
	}
}

// WithBufferSize sets the overflow buffer capacity.
func WithBufferSize(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// WithTransform installs a hook applied to each tick before
// validation of the transformed result.
func WithTransform(fn func(*models.Trade) *models.Trade) PipelineOption {
	return func(c *pipelineConfig) { c.transform = fn }
}

func NewRealtimePipeline(downstream Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	cfg := pipelineConfig{maxRPS: defaultMaxRPS, bufSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RealtimePipeline{
		downstream: downstream,
		metrics:    metrics,
		transform:  cfg.transform,
		minGap:     time.Second / time.Duration(cfg.maxRPS),
		overflow:   make(chan *models.Trade, cfg.bufSize),
		lastTick:   make(map[string]time.Time),
		done:       make(chan struct{}),
	}
}

// Start launches the overflow drainer. Calling Start twice is a no-op.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.running {
		return
	}
	p.running = true
	go p.drain(ctx)
}

// Stop terminates the drainer. Buffered ticks are abandoned.
func (p *RealtimePipeline) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.done)
}

// Process runs one tick through the pipeline. Throttled ticks are
// dropped without error; a downstream failure parks the tick in the
// overflow buffer and reports the failure to the caller.
func (p *RealtimePipeline) Process(ctx context.Context, t *models.Trade) error {
	start := time.Now()

	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTick(t); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.admit(t.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.downstream.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		p.park(t)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// admit enforces the per-symbol spacing. The first tick for a symbol
// always passes.
func (p *RealtimePipeline) admit(symbol string, now time.Time) bool {
	if p.minGap <= 0 {
		return true
	}
	p.throttleMu.Lock()
	defer p.throttleMu.Unlock()
	if last, ok := p.lastTick[symbol]; ok && now.Sub(last) < p.minGap {
		return false
	}
	p.lastTick[symbol] = now
	return true
}

func (p *RealtimePipeline) park(t *models.Trade) {
	select {
	case p.overflow <- t:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.overflow)))
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

// drain replays parked ticks. Failures back off exponentially up to
// retryBackoffMax and the tick is re-parked; a successful replay
// resets the backoff.
func (p *RealtimePipeline) drain(ctx context.Context) {
	backoff := retryBackoffMin
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case t := <-p.overflow:
			if t == nil {
				continue
			}
			if err := p.downstream.Process(ctx, t); err != nil {
				p.metrics.RecordError("pipeline_flush")
				if backoff < retryBackoffMax {
					backoff *= 2
				}
				select {
				case <-time.After(backoff):
				case <-p.done:
					return
				case <-ctx.Done():
					return
				}
				p.park(t)
				continue
			}
			backoff = retryBackoffMin
		}
	}
}

func validateTick(t *models.Trade) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("tick symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("tick timestamp invalid")
	}
	if t.Price < 0 || t.Volume < 0 {
		return fmt.Errorf("tick price/volume negative")
	}
	return nil
}
