package usecase

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	applogger "QuantSig/pkg/logger"
)

// SchedulerConfig drives the three evaluation cadences over the symbol
// universe.
type SchedulerConfig struct {
	Universe []string

	RealtimeInterval time.Duration
	HourlyInterval   time.Duration
	DailyInterval    time.Duration

	RealtimeTimeframes []domrepo.Timeframe
	HourlyTimeframes   []domrepo.Timeframe
	DailyTimeframes    []domrepo.Timeframe

	UnitTimeout time.Duration
	Workers     int
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.RealtimeInterval <= 0 {
		c.RealtimeInterval = time.Minute
	}
	if c.HourlyInterval <= 0 {
		c.HourlyInterval = time.Hour
	}
	if c.DailyInterval <= 0 {
		c.DailyInterval = 24 * time.Hour
	}
	if len(c.RealtimeTimeframes) == 0 {
		c.RealtimeTimeframes = []domrepo.Timeframe{domrepo.TF5m, domrepo.TF15m}
	}
	if len(c.HourlyTimeframes) == 0 {
		c.HourlyTimeframes = []domrepo.Timeframe{domrepo.TF1h, domrepo.TF4h}
	}
	if len(c.DailyTimeframes) == 0 {
		c.DailyTimeframes = []domrepo.Timeframe{domrepo.TF1d}
	}
	if c.UnitTimeout <= 0 {
		c.UnitTimeout = 30 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// Scheduler fans symbol x timeframe evaluation units out to a bounded worker
// pool on three independent cadences. Per-unit failures are logged and never
// abort a batch.
type Scheduler struct {
	engine    *SignalEngine
	lifecycle *LifecycleUseCase
	models    *ModelUseCase
	cfg       SchedulerConfig
	l         *applogger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(engine *SignalEngine, lifecycle *LifecycleUseCase, models *ModelUseCase, cfg SchedulerConfig, l *applogger.Logger) *Scheduler {
	return &Scheduler{
		engine:    engine,
		lifecycle: lifecycle,
		models:    models,
		cfg:       cfg.withDefaults(),
		l:         l,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.loop(ctx, "realtime", s.cfg.RealtimeInterval, s.runRealtime)
	s.loop(ctx, "hourly", s.cfg.HourlyInterval, s.runHourly)
	s.loop(ctx, "daily", s.cfg.DailyInterval, s.runDaily)

	s.l.Info("scheduler started",
		applogger.Int("symbols", len(s.cfg.Universe)),
		applogger.Int("workers", s.cfg.Workers))
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				start := time.Now()
				run(ctx)
				s.l.Debug("cadence finished",
					applogger.String("cadence", name),
					applogger.Duration("took", time.Since(start)))
			}
		}
	}()
}

func (s *Scheduler) runRealtime(ctx context.Context) {
	s.evaluateBatch(ctx, s.cfg.RealtimeTimeframes)
}

func (s *Scheduler) runHourly(ctx context.Context) {
	if _, err := s.lifecycle.ExpireStale(ctx); err != nil {
		s.l.Error("expiry sweep", applogger.Error(err))
	}
	if _, err := s.lifecycle.MonitorActive(ctx, ""); err != nil {
		s.l.Error("signal monitoring", applogger.Error(err))
	}
	s.evaluateBatch(ctx, s.cfg.HourlyTimeframes)
}

func (s *Scheduler) runDaily(ctx context.Context) {
	if _, err := s.models.EnqueueRetrains(ctx); err != nil {
		s.l.Error("retrain batch", applogger.Error(err))
	}
	s.evaluateBatch(ctx, s.cfg.DailyTimeframes)
}

type evalUnit struct {
	symbol string
	tf     domrepo.Timeframe
}

func (s *Scheduler) evaluateBatch(ctx context.Context, tfs []domrepo.Timeframe) {
	units := make(chan evalUnit)
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range units {
				s.evaluateUnit(ctx, u)
			}
		}()
	}

	for _, sym := range s.cfg.Universe {
		for _, tf := range tfs {
			select {
			case <-ctx.Done():
				close(units)
				wg.Wait()
				return
			case units <- evalUnit{symbol: sym, tf: tf}:
			}
		}
	}
	close(units)
	wg.Wait()
}

func (s *Scheduler) evaluateUnit(ctx context.Context, u evalUnit) {
	unitCtx, cancel := context.WithTimeout(ctx, s.cfg.UnitTimeout)
	defer cancel()

	res, err := s.engine.GenerateSignal(unitCtx, u.symbol, u.tf)
	if err != nil {
		// Thin history is the normal state for new symbols.
		if errors.Is(err, models.ErrInsufficientData) {
			s.l.Debug("unit skipped",
				applogger.String("symbol", u.symbol),
				applogger.String("timeframe", string(u.tf)),
				applogger.Error(err))
			return
		}
		s.l.Error("unit failed",
			applogger.String("symbol", u.symbol),
			applogger.String("timeframe", string(u.tf)),
			applogger.Error(err))
		return
	}
	if res.Signal == nil {
		s.l.Debug("no signal",
			applogger.String("symbol", u.symbol),
			applogger.String("timeframe", string(u.tf)),
			applogger.String("reason", res.Skipped))
	}
}
