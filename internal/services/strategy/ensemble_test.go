package strategy

import (
	"testing"

	"QuantSig/internal/domain/models"
)

func pred(strategy string, dir models.Direction, conf float64) *models.StrategyPrediction {
	return &models.StrategyPrediction{
		Strategy:   strategy,
		Direction:  dir,
		Confidence: conf,
		EntryPrice: 100,
	}
}

func withLevels(p *models.StrategyPrediction, target, stop float64) *models.StrategyPrediction {
	p.TargetPrice = target
	p.StopPrice = stop
	return p
}

func TestCombineEmpty(t *testing.T) {
	e := NewEnsemble(nil, 0)
	if c := e.Combine(nil); c != nil {
		t.Fatalf("expected nil consensus for no predictions")
	}
}

func TestCombineTieResolvesToHold(t *testing.T) {
	e := NewEnsemble(map[string]float64{"a": 0.5, "b": 0.5}, 0)
	c := e.Combine([]*models.StrategyPrediction{
		pred("a", models.DirectionBuy, 0.8),
		pred("b", models.DirectionSell, 0.8),
	})
	if c == nil {
		t.Fatalf("expected consensus")
	}
	if c.Direction != models.DirectionHold {
		t.Fatalf("tied buy/sell must resolve to hold, got %s", c.Direction)
	}
	if e.Pass(c) {
		t.Fatalf("hold consensus must never pass the gate")
	}
}

func TestCombineWinnerAndStrongPromotion(t *testing.T) {
	e := NewEnsemble(nil, 0)
	// technical 0.25*0.9 + predictive 0.35*0.8 = 0.505 > strongThreshold
	c := e.Combine([]*models.StrategyPrediction{
		withLevels(pred("technical", models.DirectionBuy, 0.9), 105, 97),
		withLevels(pred("predictive", models.DirectionBuy, 0.8), 107, 96),
	})
	if c == nil {
		t.Fatalf("expected consensus")
	}
	if c.Direction != models.DirectionStrongBuy {
		t.Fatalf("high buy score should promote to strong_buy, got %s", c.Direction)
	}
	if c.TargetPrice != 106 || c.StopPrice != 96.5 {
		t.Fatalf("levels should average: target=%f stop=%f", c.TargetPrice, c.StopPrice)
	}
	if c.ExpectedReturnPct <= 0 {
		t.Fatalf("long consensus should expect positive return, got %f", c.ExpectedReturnPct)
	}
}

func TestCombineWeakBuyStaysPlain(t *testing.T) {
	e := NewEnsemble(nil, 0)
	// mean_reversion alone: 0.10*0.9 = 0.09 < strongThreshold
	c := e.Combine([]*models.StrategyPrediction{
		withLevels(pred("mean_reversion", models.DirectionBuy, 0.9), 105, 97),
	})
	if c == nil || c.Direction != models.DirectionBuy {
		t.Fatalf("expected plain buy, got %+v", c)
	}
}

func TestCombineIgnoresUnknownStrategy(t *testing.T) {
	e := NewEnsemble(nil, 0)
	c := e.Combine([]*models.StrategyPrediction{
		pred("mystery", models.DirectionBuy, 0.99),
	})
	if c != nil {
		t.Fatalf("unknown strategy alone should yield no consensus, got %+v", c)
	}
}

func TestCombineStrongDirectionsVoteWithBase(t *testing.T) {
	e := NewEnsemble(nil, 0)
	c := e.Combine([]*models.StrategyPrediction{
		withLevels(pred("technical", models.DirectionStrongSell, 0.9), 95, 103),
		withLevels(pred("predictive", models.DirectionSell, 0.9), 94, 104),
	})
	if c == nil {
		t.Fatalf("expected consensus")
	}
	if c.Direction != models.DirectionStrongSell {
		t.Fatalf("expected strong_sell, got %s", c.Direction)
	}
	if c.ExpectedReturnPct >= 0 {
		t.Fatalf("short consensus should expect negative return, got %f", c.ExpectedReturnPct)
	}
}

func TestPassConfidenceGate(t *testing.T) {
	e := NewEnsemble(nil, 0.65)
	c := &Consensus{
		Direction:         models.DirectionBuy,
		Confidence:        0.6,
		TargetPrice:       105,
		StopPrice:         97,
		ExpectedReturnPct: 5,
	}
	if e.Pass(c) {
		t.Fatalf("confidence below threshold must be rejected")
	}
	c.Confidence = 0.7
	if !e.Pass(c) {
		t.Fatalf("expected pass at confidence 0.7")
	}
}

func TestPassRequiresLevels(t *testing.T) {
	e := NewEnsemble(nil, 0.65)
	c := &Consensus{
		Direction:         models.DirectionBuy,
		Confidence:        0.9,
		ExpectedReturnPct: 5,
	}
	if e.Pass(c) {
		t.Fatalf("missing levels must be rejected")
	}
}

func TestPassRequiresMinimumMove(t *testing.T) {
	e := NewEnsemble(nil, 0.65)
	c := &Consensus{
		Direction:         models.DirectionBuy,
		Confidence:        0.9,
		TargetPrice:       100.5,
		StopPrice:         99.8,
		ExpectedReturnPct: 0.5,
	}
	if e.Pass(c) {
		t.Fatalf("sub-1%% expected move must be rejected")
	}
	c.ExpectedReturnPct = -1.5
	if !e.Pass(c) {
		t.Fatalf("magnitude check should accept negative expected return")
	}
}

func TestPassNil(t *testing.T) {
	e := NewEnsemble(nil, 0)
	if e.Pass(nil) {
		t.Fatalf("nil consensus must not pass")
	}
}
