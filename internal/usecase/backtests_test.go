package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/backtest"
	"QuantSig/internal/services/strategy"
)

func backtestConfig() backtest.Config {
	return backtest.Config{}
}

func newTestBacktests(t *testing.T, bars *stubBarStore, store *stubBacktestStore, evaluators []domsvc.Evaluator) *BacktestUseCase {
	t.Helper()
	return NewBacktestUseCase(bars, store, evaluators, strategy.NewEnsemble(nil, 0.65), backtestConfig(), backtestConfig(), testLogger(t))
}

func TestQuickBacktestRequiresSymbol(t *testing.T) {
	uc := newTestBacktests(t, &stubBarStore{}, &stubBacktestStore{}, nil)
	if _, err := uc.QuickBacktest(context.Background(), BacktestParams{}); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
}

func TestQuickBacktestInsufficientBars(t *testing.T) {
	uc := newTestBacktests(t, &stubBarStore{bars: risingBars(5)}, &stubBacktestStore{}, nil)
	_, err := uc.QuickBacktest(context.Background(), BacktestParams{Symbol: "AAPL", Timeframe: domrepo.TF1h})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestQuickBacktestUnknownStrategy(t *testing.T) {
	uc := newTestBacktests(t, &stubBarStore{bars: risingBars(60)}, &stubBacktestStore{}, nil)
	_, err := uc.QuickBacktest(context.Background(), BacktestParams{Symbol: "AAPL", Strategy: "astrology"})
	if err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestQuickBacktestDoesNotPersist(t *testing.T) {
	store := &stubBacktestStore{}
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "technical", pred: buyPrediction("technical")}}
	uc := newTestBacktests(t, &stubBarStore{bars: risingBars(60)}, store, evaluators)
	res, err := uc.QuickBacktest(context.Background(), BacktestParams{Symbol: "AAPL", Strategy: "technical", Timeframe: domrepo.TF1h})
	if err != nil {
		t.Fatalf("quick: %v", err)
	}
	if res.Strategy != "technical" || res.Timeframe != "1h" {
		t.Fatalf("result labels: %s/%s", res.Strategy, res.Timeframe)
	}
	if len(store.saved) != 0 {
		t.Fatalf("quick backtests must not persist")
	}
}

func TestRunFullBacktestPersists(t *testing.T) {
	store := &stubBacktestStore{}
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "technical", pred: buyPrediction("technical")}}
	uc := newTestBacktests(t, &stubBarStore{bars: risingBars(80)}, store, evaluators)
	res, err := uc.RunFullBacktest(context.Background(), BacktestParams{Symbol: "AAPL", Strategy: "technical", Timeframe: domrepo.TF1h})
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].ID != res.ID {
		t.Fatalf("full backtest must persist its result")
	}
}

func TestRunFullBacktestCapitalOverride(t *testing.T) {
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "technical", pred: buyPrediction("technical")}}
	uc := newTestBacktests(t, &stubBarStore{bars: risingBars(80)}, &stubBacktestStore{}, evaluators)
	res, err := uc.RunFullBacktest(context.Background(), BacktestParams{
		Symbol:         "AAPL",
		Strategy:       "technical",
		InitialCapital: 25_000,
	})
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if res.InitialCapital != 25_000 {
		t.Fatalf("initial capital = %f", res.InitialCapital)
	}
}

func TestValidateDirection(t *testing.T) {
	uc := newTestBacktests(t, &stubBarStore{}, &stubBacktestStore{}, nil)
	winRate, trades, err := uc.ValidateDirection(context.Background(), "AAPL", domrepo.TF1h, risingBars(60), models.DirectionBuy)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if trades == 0 {
		t.Fatalf("rising series with long entries should trade")
	}
	if winRate < 0 || winRate > 1 {
		t.Fatalf("win rate = %f", winRate)
	}
}

func TestValidateDirectionTooFewBars(t *testing.T) {
	uc := newTestBacktests(t, &stubBarStore{}, &stubBacktestStore{}, nil)
	_, _, err := uc.ValidateDirection(context.Background(), "AAPL", domrepo.TF1h, risingBars(5), models.DirectionBuy)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestQuickDirectionalLabels(t *testing.T) {
	uc := newTestBacktests(t, &stubBarStore{bars: risingBars(60)}, &stubBacktestStore{}, nil)
	res, err := uc.QuickDirectional(context.Background(), "AAPL", domrepo.TF1h, models.DirectionBuy, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("quick directional: %v", err)
	}
	if res.Strategy != "directional_buy" {
		t.Fatalf("strategy label = %s", res.Strategy)
	}
}

func TestDirectionalSignalFuncFlatBarsNeverFire(t *testing.T) {
	bars := risingBars(3)
	bars[2].Close = bars[1].Close
	fn := directionalSignalFunc(models.DirectionBuy)
	if _, fire := fn(context.Background(), 0, bars); fire {
		t.Fatalf("first bar has no prior close to compare")
	}
	if _, fire := fn(context.Background(), 2, bars); fire {
		t.Fatalf("flat bar must not fire")
	}
	if dir, fire := fn(context.Background(), 1, bars); !fire || dir != models.DirectionBuy {
		t.Fatalf("up move should fire buy, got %s/%v", dir, fire)
	}
}

func TestDirectionalSignalFuncShort(t *testing.T) {
	bars := risingBars(3)
	bars[2].Close = bars[1].Close - 1
	bars[2].Low = bars[2].Close - 1
	fn := directionalSignalFunc(models.DirectionSell)
	if dir, fire := fn(context.Background(), 2, bars); !fire || dir != models.DirectionSell {
		t.Fatalf("down move should fire sell, got %s/%v", dir, fire)
	}
	if _, fire := fn(context.Background(), 1, bars); fire {
		t.Fatalf("up move must not fire a short entry")
	}
}
