package strategy

import (
	"context"
	"fmt"
	"math"

	"QuantSig/internal/domain/models"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/features"
)

// Predictive delegates to the per-symbol model store and converts its scalar
// score into a directional call. Hold-range scores are suppressed.
type Predictive struct {
	predictor domsvc.Predictor
}

func NewPredictive(predictor domsvc.Predictor) *Predictive {
	return &Predictive{predictor: predictor}
}

func (p *Predictive) Name() string { return "predictive" }

const scoreThreshold = 0.3

func (p *Predictive) Evaluate(ctx context.Context, snap *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	price, ok := snap.LastClose()
	if !ok || price <= 0 {
		return nil, nil
	}
	fv, err := features.Extract(snap)
	if err != nil {
		return nil, err
	}
	score, err := p.predictor.Predict(ctx, snap.Symbol, fv)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", snap.Symbol, err)
	}

	var dir models.Direction
	switch {
	case score > scoreThreshold:
		dir = models.DirectionBuy
	case score < -scoreThreshold:
		dir = models.DirectionSell
	default:
		return nil, nil
	}

	conf := features.Clamp(0.4+math.Abs(score)/2, 0, 0.9)
	atr := snap.Indicators.ATR
	if !snap.Indicators.HasATR || atr <= 0 {
		atr = price * 0.02
	}
	target, stop := price+2*atr, price-atr
	if dir == models.DirectionSell {
		target, stop = price-2*atr, price+atr
	}

	return &models.StrategyPrediction{
		Strategy:          p.Name(),
		Direction:         dir,
		Confidence:        conf,
		EntryPrice:        price,
		TargetPrice:       target,
		StopPrice:         stop,
		ExpectedReturnPct: (target - price) / price * 100,
		Rationale:         fmt.Sprintf("model score %.2f", score),
		RawFeatures: map[string]float64{
			"score":        score,
			"volatility20": fv.Volatility20,
		},
	}, nil
}

var _ domsvc.Evaluator = (*Predictive)(nil)
