package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	domsvc "QuantSig/internal/domain/service"
	enginemetrics "QuantSig/internal/service/metrics"
	"QuantSig/internal/services/backtest"
	"QuantSig/internal/services/features"
	"QuantSig/internal/services/strategy"
	applogger "QuantSig/pkg/logger"
)

const (
	minQuickBars = 10
	minFullBars  = 50

	// StrategyEnsemble runs the full evaluator set through the combiner at
	// every bar; the other strategy names select a single evaluator.
	StrategyEnsemble = "ensemble"
)

// BacktestUseCase exposes the two backtest modes and the validation run the
// signal engine embeds into emitted signals.
type BacktestUseCase struct {
	bars       domrepo.BarStore
	store      domrepo.BacktestStore
	evaluators []domsvc.Evaluator
	ensemble   *strategy.Ensemble
	quickCfg   backtest.Config
	fullCfg    backtest.Config
	l          *applogger.Logger
}

func NewBacktestUseCase(
	bars domrepo.BarStore,
	store domrepo.BacktestStore,
	evaluators []domsvc.Evaluator,
	ensemble *strategy.Ensemble,
	quickCfg, fullCfg backtest.Config,
	l *applogger.Logger,
) *BacktestUseCase {
	quickCfg.Mode = backtest.ModeQuick
	fullCfg.Mode = backtest.ModeComprehensive
	return &BacktestUseCase{
		bars:       bars,
		store:      store,
		evaluators: evaluators,
		ensemble:   ensemble,
		quickCfg:   quickCfg.WithDefaults(),
		fullCfg:    fullCfg.WithDefaults(),
		l:          l,
	}
}

type BacktestParams struct {
	Symbol    string
	Strategy  string
	Timeframe domrepo.Timeframe
	From      time.Time
	To        time.Time

	// Optional config overrides; zero keeps the configured default.
	InitialCapital     float64
	MaxPositionSizePct float64
	RiskPerTrade       float64
}

// QuickBacktest runs the lightweight fixed-fractional simulation. Results are
// returned to the caller but not persisted.
func (uc *BacktestUseCase) QuickBacktest(ctx context.Context, p BacktestParams) (*models.BacktestResult, error) {
	return uc.run(ctx, p, uc.quickCfg, minQuickBars, false)
}

// RunFullBacktest runs the comprehensive volatility-scaled simulation and
// persists the result.
func (uc *BacktestUseCase) RunFullBacktest(ctx context.Context, p BacktestParams) (*models.BacktestResult, error) {
	return uc.run(ctx, p, uc.fullCfg, minFullBars, true)
}

func (uc *BacktestUseCase) run(ctx context.Context, p BacktestParams, cfg backtest.Config, minBars int, persist bool) (*models.BacktestResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	p.Timeframe = domrepo.NormalizeTimeframe(p.Timeframe)
	if p.Strategy == "" {
		p.Strategy = StrategyEnsemble
	}
	sigFn, err := uc.signalFuncFor(p.Strategy, p.Symbol, p.Timeframe)
	if err != nil {
		return nil, err
	}
	if p.InitialCapital > 0 {
		cfg.InitialCapital = p.InitialCapital
	}
	if p.MaxPositionSizePct > 0 {
		cfg.MaxPositionSizePct = p.MaxPositionSizePct
	}
	if p.RiskPerTrade > 0 {
		cfg.RiskPerTrade = p.RiskPerTrade
	}

	bars, err := uc.bars.GetBars(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) < minBars {
		return nil, fmt.Errorf("%s %s: %d bars, need %d: %w",
			p.Symbol, p.Timeframe, len(bars), minBars, models.ErrInsufficientData)
	}

	start := time.Now()
	res, err := backtest.NewSimulator(cfg).Run(ctx, p.Symbol, bars, domrepo.BarDuration(p.Timeframe), sigFn)
	enginemetrics.BacktestDuration.WithLabelValues(string(cfg.Mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	res.Strategy = p.Strategy
	res.Timeframe = string(p.Timeframe)

	uc.l.Info("backtest finished",
		applogger.String("symbol", p.Symbol),
		applogger.String("strategy", p.Strategy),
		applogger.String("mode", string(cfg.Mode)),
		applogger.Int("trades", len(res.Trades)),
		applogger.Duration("took", time.Since(start)))

	if persist {
		if err := uc.store.Save(ctx, res); err != nil {
			return nil, fmt.Errorf("save backtest result: %w", err)
		}
	}
	return res, nil
}

// QuickDirectional runs the quick simulation over the trailing lookback
// window, entering whenever a bar moves in the requested direction.
func (uc *BacktestUseCase) QuickDirectional(ctx context.Context, symbol string, tf domrepo.Timeframe, dir models.Direction, lookback time.Duration) (*models.BacktestResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	tf = domrepo.NormalizeTimeframe(tf)
	now := time.Now().UTC()
	bars, err := uc.bars.GetBars(ctx, symbol, now.Add(-lookback), now, tf)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) < minQuickBars {
		return nil, fmt.Errorf("%s %s: %d bars, need %d: %w",
			symbol, tf, len(bars), minQuickBars, models.ErrInsufficientData)
	}

	start := time.Now()
	res, err := backtest.NewSimulator(uc.quickCfg).Run(ctx, symbol, bars, domrepo.BarDuration(tf), directionalSignalFunc(dir))
	enginemetrics.BacktestDuration.WithLabelValues(string(backtest.ModeQuick)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	res.Strategy = "directional_" + string(dir)
	res.Timeframe = string(tf)
	return res, nil
}

// ValidateDirection replays the snapshot window in quick mode, entering
// whenever a bar moves in the signal's direction, and reports the win rate
// and trade count over that history.
func (uc *BacktestUseCase) ValidateDirection(ctx context.Context, symbol string, tf domrepo.Timeframe, bars []models.Bar, dir models.Direction) (float64, int, error) {
	if len(bars) < minQuickBars {
		return 0, 0, fmt.Errorf("%s: %d bars: %w", symbol, len(bars), models.ErrInsufficientData)
	}
	res, err := backtest.NewSimulator(uc.quickCfg).Run(ctx, symbol, bars, domrepo.BarDuration(tf), directionalSignalFunc(dir))
	if err != nil {
		return 0, 0, err
	}
	return res.Metrics.WinRate, len(res.Trades), nil
}

func (uc *BacktestUseCase) signalFuncFor(name, symbol string, tf domrepo.Timeframe) (backtest.SignalFunc, error) {
	if name == StrategyEnsemble {
		return uc.ensembleSignalFunc(symbol, tf), nil
	}
	for _, ev := range uc.evaluators {
		if ev.Name() == name {
			return uc.evaluatorSignalFunc(ev, symbol, tf), nil
		}
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

func (uc *BacktestUseCase) evaluatorSignalFunc(ev domsvc.Evaluator, symbol string, tf domrepo.Timeframe) backtest.SignalFunc {
	return func(ctx context.Context, i int, bars []models.Bar) (models.Direction, bool) {
		snap, ok := replaySnapshot(symbol, tf, i, bars)
		if !ok {
			return models.DirectionHold, false
		}
		pred, err := ev.Evaluate(ctx, snap)
		if err != nil || pred == nil || pred.Direction == models.DirectionHold {
			return models.DirectionHold, false
		}
		return pred.Direction, true
	}
}

func (uc *BacktestUseCase) ensembleSignalFunc(symbol string, tf domrepo.Timeframe) backtest.SignalFunc {
	return func(ctx context.Context, i int, bars []models.Bar) (models.Direction, bool) {
		snap, ok := replaySnapshot(symbol, tf, i, bars)
		if !ok {
			return models.DirectionHold, false
		}
		var preds []*models.StrategyPrediction
		for _, ev := range uc.evaluators {
			pred, err := ev.Evaluate(ctx, snap)
			if err != nil || pred == nil {
				continue
			}
			preds = append(preds, pred)
		}
		c := uc.ensemble.Combine(preds)
		if !uc.ensemble.Pass(c) {
			return models.DirectionHold, false
		}
		return c.Direction, true
	}
}

// replaySnapshot rebuilds the market view an evaluator would have seen at bar
// i, using only bars up to and including i. News is not replayed; the
// sentiment evaluator simply abstains.
func replaySnapshot(symbol string, tf domrepo.Timeframe, i int, bars []models.Bar) (*models.MarketSnapshot, bool) {
	if i+1 < features.MinBars {
		return nil, false
	}
	lo := i + 1 - snapshotBars
	if lo < 0 {
		lo = 0
	}
	window := bars[lo : i+1]
	return &models.MarketSnapshot{
		Symbol:     symbol,
		Timeframe:  string(tf),
		AsOf:       bars[i].Bucket,
		Bars:       window,
		Indicators: features.ComputeIndicatorSet(window),
	}, true
}

// directionalSignalFunc enters whenever the bar closes in the given direction
// relative to the prior close. Flat bars never trigger an entry.
func directionalSignalFunc(dir models.Direction) backtest.SignalFunc {
	long := dir == models.DirectionBuy || dir == models.DirectionStrongBuy
	return func(_ context.Context, i int, bars []models.Bar) (models.Direction, bool) {
		if i == 0 {
			return models.DirectionHold, false
		}
		delta := bars[i].Close - bars[i-1].Close
		switch {
		case long && delta > 0:
			return models.DirectionBuy, true
		case !long && delta < 0:
			return models.DirectionSell, true
		}
		return models.DirectionHold, false
	}
}
