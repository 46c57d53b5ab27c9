package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/strategy"
	applogger "QuantSig/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func risingBars(n int) []models.Bar {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i)*0.3
		bars[i] = models.Bar{
			Bucket: base.Add(time.Duration(i) * time.Hour),
			Symbol: "AAPL",
			Open:   c - 0.1,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

type stubBarStore struct {
	bars []models.Bar
	err  error
}

func (s *stubBarStore) GetBars(context.Context, string, time.Time, time.Time, domrepo.Timeframe) ([]models.Bar, error) {
	return s.bars, s.err
}

func (s *stubBarStore) GetLatestNBars(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.bars) > n {
		return s.bars[len(s.bars)-n:], nil
	}
	return s.bars, nil
}

type stubSignalStore struct {
	recent    *models.Signal
	active    []models.Signal
	expirable []models.Signal
	saved     []*models.Signal
	updated   []models.Signal
	updateErr error
}

func (s *stubSignalStore) Save(_ context.Context, sig *models.Signal) error {
	s.saved = append(s.saved, sig)
	return nil
}

func (s *stubSignalStore) UpdateStatus(_ context.Context, sig *models.Signal) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, *sig)
	return nil
}

func (s *stubSignalStore) FindRecent(context.Context, string, domrepo.Timeframe) (*models.Signal, error) {
	return s.recent, nil
}

func (s *stubSignalStore) ListActive(context.Context, string, int) ([]models.Signal, error) {
	return s.active, nil
}

func (s *stubSignalStore) ListExpirable(context.Context, time.Time, int) ([]models.Signal, error) {
	return s.expirable, nil
}

func (s *stubSignalStore) Stats(_ context.Context, symbol string) (*models.SignalStats, error) {
	return &models.SignalStats{Symbol: symbol}, nil
}

type stubBacktestStore struct {
	saved []*models.BacktestResult
}

func (s *stubBacktestStore) Save(_ context.Context, r *models.BacktestResult) error {
	s.saved = append(s.saved, r)
	return nil
}

type stubIndicators struct{ err error }

func (s stubIndicators) GetIndicators(context.Context, string, time.Time, domrepo.Timeframe) (models.IndicatorSet, error) {
	return models.IndicatorSet{}, s.err
}

type stubNews struct{ err error }

func (s stubNews) GetLatestNews(context.Context, string, int) ([]models.NewsItem, error) {
	return nil, s.err
}

type stubPublisher struct {
	published []*models.Signal
	err       error
}

func (s *stubPublisher) PublishSignal(_ context.Context, sig *models.Signal) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, sig)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

// stubEvaluator returns a fixed prediction for every snapshot.
type stubEvaluator struct {
	name string
	pred *models.StrategyPrediction
	err  error
}

func (s stubEvaluator) Name() string { return s.name }

func (s stubEvaluator) Evaluate(context.Context, *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	return s.pred, s.err
}

// hangingEvaluator ignores its context and blocks until released.
type hangingEvaluator struct {
	release chan struct{}
}

func (h hangingEvaluator) Name() string { return "hanging" }

func (h hangingEvaluator) Evaluate(context.Context, *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	<-h.release
	return nil, nil
}

func buyPrediction(name string) *models.StrategyPrediction {
	return &models.StrategyPrediction{
		Strategy:          name,
		Direction:         models.DirectionBuy,
		Confidence:        0.9,
		EntryPrice:        100,
		TargetPrice:       105,
		StopPrice:         97,
		ExpectedReturnPct: 5,
	}
}

type engineDeps struct {
	signals *stubSignalStore
	pub     *stubPublisher
}

func newTestEngine(t *testing.T, bars *stubBarStore, signals *stubSignalStore, evaluators []domsvc.Evaluator, ensemble *strategy.Ensemble) (*SignalEngine, engineDeps) {
	t.Helper()
	l := testLogger(t)
	lifecycle := NewLifecycleUseCase(signals, bars, l)
	backtests := NewBacktestUseCase(bars, &stubBacktestStore{}, evaluators, ensemble, backtestConfig(), backtestConfig(), l)
	pub := &stubPublisher{}
	engine := NewSignalEngine(bars, stubIndicators{}, stubNews{}, lifecycle, backtests, pub, evaluators, ensemble, l, time.Second)
	return engine, engineDeps{signals: signals, pub: pub}
}

func TestGenerateSignalEmits(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(60)}
	signals := &stubSignalStore{}
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "stub", pred: buyPrediction("stub")}}
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	engine, deps := newTestEngine(t, bars, signals, evaluators, ensemble)
	res, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Signal == nil {
		t.Fatalf("expected a signal, skipped: %q", res.Skipped)
	}
	sig := res.Signal
	if sig.Status != models.SignalGenerated {
		t.Fatalf("status = %s", sig.Status)
	}
	if sig.ID == "" {
		t.Fatalf("signal must carry an id")
	}
	if got := sig.ExpiresAt.Sub(sig.CreatedAt); got != domrepo.SignalExpiry(domrepo.TF1h) {
		t.Fatalf("expiry horizon = %v", got)
	}
	if len(deps.signals.saved) != 1 {
		t.Fatalf("signal not persisted")
	}
	if len(deps.pub.published) != 1 {
		t.Fatalf("signal not published")
	}
	// a rising series with a long signal should produce validation trades
	if sig.QuickTrades == 0 {
		t.Fatalf("expected validation trades on a trending window")
	}
}

func TestGenerateSignalCooldown(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(60)}
	signals := &stubSignalStore{recent: &models.Signal{
		Status:    models.SignalGenerated,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}}
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "stub", pred: buyPrediction("stub")}}
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	engine, deps := newTestEngine(t, bars, signals, evaluators, ensemble)
	res, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Signal != nil || res.Skipped != "cooldown" {
		t.Fatalf("expected cooldown skip, got %+v", res)
	}
	if len(deps.signals.saved) != 0 {
		t.Fatalf("cooldown must not persist anything")
	}
}

func TestGenerateSignalInsufficientBars(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(10)}
	signals := &stubSignalStore{}
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "stub", pred: buyPrediction("stub")}}
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	engine, _ := newTestEngine(t, bars, signals, evaluators, ensemble)
	_, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestGenerateSignalBelowGate(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(60)}
	signals := &stubSignalStore{}
	weak := buyPrediction("stub")
	weak.Confidence = 0.4
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "stub", pred: weak}}
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	engine, deps := newTestEngine(t, bars, signals, evaluators, ensemble)
	res, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Signal != nil || res.Skipped == "" {
		t.Fatalf("weak consensus should be gated, got %+v", res)
	}
	if len(deps.signals.saved) != 0 {
		t.Fatalf("gated cycle must not persist")
	}
}

func TestGenerateSignalEvaluatorErrorTreatedAsAbstain(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(60)}
	signals := &stubSignalStore{}
	evaluators := []domsvc.Evaluator{
		stubEvaluator{name: "stub", err: errors.New("boom")},
	}
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	engine, _ := newTestEngine(t, bars, signals, evaluators, ensemble)
	res, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil {
		t.Fatalf("evaluator failure must not fail the cycle: %v", err)
	}
	if res.Signal != nil {
		t.Fatalf("no surviving predictions should mean no signal")
	}
}

func TestGenerateSignalAbandonsUnresponsiveEvaluator(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(60)}
	signals := &stubSignalStore{}
	release := make(chan struct{})
	defer close(release)

	good := []domsvc.Evaluator{stubEvaluator{name: "stub", pred: buyPrediction("stub")}}
	all := append([]domsvc.Evaluator{hangingEvaluator{release: release}}, good...)
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	l := testLogger(t)
	lifecycle := NewLifecycleUseCase(signals, bars, l)
	// The validation backtest gets only the cooperative evaluator; the
	// fan-out under test gets both.
	backtests := NewBacktestUseCase(bars, &stubBacktestStore{}, good, ensemble, backtestConfig(), backtestConfig(), l)
	pub := &stubPublisher{}
	engine := NewSignalEngine(bars, stubIndicators{}, stubNews{}, lifecycle, backtests, pub, all, ensemble, l, 50*time.Millisecond)

	start := time.Now()
	res, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cycle blocked on unresponsive evaluator for %v", elapsed)
	}
	if res.Signal == nil {
		t.Fatalf("cooperative evaluator's prediction lost, skipped: %q", res.Skipped)
	}
}

func TestGenerateSignalPublishFailureStillEmits(t *testing.T) {
	bars := &stubBarStore{bars: risingBars(60)}
	signals := &stubSignalStore{}
	evaluators := []domsvc.Evaluator{stubEvaluator{name: "stub", pred: buyPrediction("stub")}}
	ensemble := strategy.NewEnsemble(map[string]float64{"stub": 1}, 0.65)

	l := testLogger(t)
	lifecycle := NewLifecycleUseCase(signals, bars, l)
	backtests := NewBacktestUseCase(bars, &stubBacktestStore{}, evaluators, ensemble, backtestConfig(), backtestConfig(), l)
	pub := &stubPublisher{err: errors.New("broker down")}
	engine := NewSignalEngine(bars, stubIndicators{}, stubNews{}, lifecycle, backtests, pub, evaluators, ensemble, l, time.Second)

	res, err := engine.GenerateSignal(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil {
		t.Fatalf("publish failure must not fail the cycle: %v", err)
	}
	if res.Signal == nil {
		t.Fatalf("signal should still be recorded")
	}
	if len(signals.saved) != 1 {
		t.Fatalf("signal not persisted")
	}
}

func TestGenerateSignalEmptySymbol(t *testing.T) {
	engine, _ := newTestEngine(t, &stubBarStore{}, &stubSignalStore{}, nil, strategy.NewEnsemble(nil, 0))
	if _, err := engine.GenerateSignal(context.Background(), "", domrepo.TF1h); err == nil {
		t.Fatalf("expected error for empty symbol")
	}
}
