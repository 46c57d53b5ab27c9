package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	domsvc "QuantSig/internal/domain/service"
	enginemetrics "QuantSig/internal/service/metrics"
	"QuantSig/internal/services/features"
	"QuantSig/internal/services/strategy"
	applogger "QuantSig/pkg/logger"
)

const (
	// snapshotBars is the bar window handed to evaluators; enough for 50-SMA
	// alignment plus warm-up.
	snapshotBars = 120
	newsLimit    = 20

	defaultEvaluatorTimeout = 5 * time.Second

	// evalDetachGrace is how long past the per-evaluator timeout the
	// collector waits before abandoning outstanding evaluators.
	evalDetachGrace = 100 * time.Millisecond
)

// SignalEngine runs one full evaluation cycle per (symbol, timeframe):
// snapshot assembly, evaluator fan-out, ensemble combination, lifecycle
// gating, quick validation, persistence and publication.
type SignalEngine struct {
	bars       domrepo.BarStore
	indicators domrepo.IndicatorProvider
	news       domrepo.NewsProvider
	lifecycle  *LifecycleUseCase
	backtests  *BacktestUseCase
	pub        domrepo.SignalPublisher
	evaluators []domsvc.Evaluator
	ensemble   *strategy.Ensemble
	l          *applogger.Logger

	evalTimeout time.Duration
}

func NewSignalEngine(
	bars domrepo.BarStore,
	indicators domrepo.IndicatorProvider,
	news domrepo.NewsProvider,
	lifecycle *LifecycleUseCase,
	backtests *BacktestUseCase,
	pub domrepo.SignalPublisher,
	evaluators []domsvc.Evaluator,
	ensemble *strategy.Ensemble,
	l *applogger.Logger,
	evalTimeout time.Duration,
) *SignalEngine {
	if evalTimeout <= 0 {
		evalTimeout = defaultEvaluatorTimeout
	}
	return &SignalEngine{
		bars:        bars,
		indicators:  indicators,
		news:        news,
		lifecycle:   lifecycle,
		backtests:   backtests,
		pub:         pub,
		evaluators:  evaluators,
		ensemble:    ensemble,
		l:           l,
		evalTimeout: evalTimeout,
	}
}

// GenerateSignalResult reports the outcome of one evaluation cycle. Signal is
// nil when the cycle completed but produced nothing actionable; Skipped then
// carries the reason.
type GenerateSignalResult struct {
	Symbol    string
	Timeframe string
	Signal    *models.Signal
	Skipped   string
}

func (e *SignalEngine) GenerateSignal(ctx context.Context, symbol string, tf domrepo.Timeframe) (*GenerateSignalResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	tf = domrepo.NormalizeTimeframe(tf)
	res := &GenerateSignalResult{Symbol: symbol, Timeframe: string(tf)}

	// Cooldown: a fresh generated signal for (symbol, timeframe) suppresses
	// regeneration.
	active, err := e.lifecycle.InCooldown(ctx, symbol, tf)
	if err != nil {
		return nil, fmt.Errorf("cooldown check: %w", err)
	}
	if active {
		enginemetrics.SignalsRejected.WithLabelValues("cooldown").Inc()
		res.Skipped = "cooldown"
		return res, nil
	}

	snap, err := e.buildSnapshot(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}

	preds := e.evaluate(ctx, snap)
	consensus := e.ensemble.Combine(preds)
	if !e.ensemble.Pass(consensus) {
		enginemetrics.SignalsRejected.WithLabelValues("gate").Inc()
		res.Skipped = "below emission gate"
		return res, nil
	}

	now := time.Now().UTC()
	sig := &models.Signal{
		ID:                uuid.NewString(),
		Symbol:            symbol,
		Timeframe:         string(tf),
		Direction:         consensus.Direction,
		Confidence:        consensus.Confidence,
		EntryPrice:        consensus.EntryPrice,
		TargetPrice:       consensus.TargetPrice,
		StopPrice:         consensus.StopPrice,
		RiskRewardRatio:   consensus.RiskRewardRatio,
		ExpectedReturnPct: consensus.ExpectedReturnPct,
		Rationale:         consensus.Rationale,
		CreatedAt:         now,
		ExpiresAt:         now.Add(domrepo.SignalExpiry(tf)),
		Status:            models.SignalGenerated,
	}

	// Validation backtest over the snapshot window; advisory, never blocks
	// emission.
	if winRate, trades, verr := e.backtests.ValidateDirection(ctx, symbol, tf, snap.Bars, consensus.Direction); verr != nil {
		e.l.Warn("validation backtest failed",
			applogger.String("symbol", symbol),
			applogger.Error(verr))
	} else {
		sig.QuickWinRate = winRate
		sig.QuickTrades = trades
	}

	if err := e.lifecycle.Record(ctx, sig); err != nil {
		return nil, fmt.Errorf("save signal: %w", err)
	}
	if err := e.pub.PublishSignal(ctx, sig); err != nil {
		// Persisted but not announced; downstream catches up via the store.
		e.l.Error("publish signal",
			applogger.String("signal_id", sig.ID),
			applogger.Error(err))
	}

	enginemetrics.SignalsGenerated.WithLabelValues(symbol, string(sig.Direction)).Inc()
	e.l.Info("signal generated",
		applogger.String("signal_id", sig.ID),
		applogger.String("symbol", symbol),
		applogger.String("timeframe", string(tf)),
		applogger.String("direction", string(sig.Direction)),
		applogger.Any("confidence", sig.Confidence))

	res.Signal = sig
	return res, nil
}

func (e *SignalEngine) buildSnapshot(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.MarketSnapshot, error) {
	bars, err := e.bars.GetLatestNBars(ctx, symbol, snapshotBars, tf)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) < features.MinBars {
		return nil, fmt.Errorf("%s %s: %d bars: %w", symbol, tf, len(bars), models.ErrInsufficientData)
	}

	snap := &models.MarketSnapshot{
		Symbol:    symbol,
		Timeframe: string(tf),
		AsOf:      bars[len(bars)-1].Bucket,
		Bars:      bars,
	}

	// Indicator and news failures degrade the snapshot, they do not abort the
	// cycle.
	if ind, err := e.indicators.GetIndicators(ctx, symbol, snap.AsOf, tf); err != nil {
		e.l.Warn("indicators unavailable", applogger.String("symbol", symbol), applogger.Error(err))
	} else {
		snap.Indicators = ind
	}
	if items, err := e.news.GetLatestNews(ctx, symbol, newsLimit); err != nil {
		e.l.Warn("news unavailable", applogger.String("symbol", symbol), applogger.Error(err))
	} else {
		snap.News = items
	}
	return snap, nil
}

// evaluate fans the snapshot out to every evaluator with a per-evaluator
// timeout. A timeout or error counts as "no prediction" for that strategy.
func (e *SignalEngine) evaluate(ctx context.Context, snap *models.MarketSnapshot) []*models.StrategyPrediction {
	type item struct {
		name string
		pred *models.StrategyPrediction
		err  error
	}
	// The channel is buffered to the fan-out width so a result arriving
	// after the collector has given up never blocks its goroutine.
	ch := make(chan item, len(e.evaluators))

	for _, ev := range e.evaluators {
		go func(ev domsvc.Evaluator) {
			evCtx, cancel := context.WithTimeout(ctx, e.evalTimeout)
			defer cancel()

			start := time.Now()
			pred, err := ev.Evaluate(evCtx, snap)
			enginemetrics.EvaluatorLatency.WithLabelValues(ev.Name()).Observe(time.Since(start).Seconds())
			if evCtx.Err() != nil && err == nil {
				err = fmt.Errorf("%s: %w", ev.Name(), models.ErrEvaluatorTimeout)
			}
			ch <- item{ev.Name(), pred, err}
		}(ev)
	}

	// An evaluator that ignores its context forfeits its slot once the
	// shared deadline passes; the cycle proceeds with what arrived.
	deadline := time.NewTimer(e.evalTimeout + evalDetachGrace)
	defer deadline.Stop()

	var preds []*models.StrategyPrediction
	for pending := len(e.evaluators); pending > 0; pending-- {
		var it item
		select {
		case it = <-ch:
		case <-deadline.C:
			e.l.Warn("abandoning unresponsive evaluators", applogger.Int("count", pending))
			return preds
		}
		if it.err != nil {
			enginemetrics.EvaluatorErrors.WithLabelValues(it.name).Inc()
			if errors.Is(it.err, models.ErrEvaluatorTimeout) {
				e.l.Warn("evaluator timed out", applogger.String("evaluator", it.name))
			} else {
				e.l.Warn("evaluator failed", applogger.String("evaluator", it.name), applogger.Error(it.err))
			}
			continue
		}
		if it.pred != nil {
			preds = append(preds, it.pred)
		}
	}
	return preds
}
