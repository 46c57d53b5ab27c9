package strategy

import (
	"context"
	"fmt"

	"QuantSig/internal/domain/models"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/features"
)

// MeanReversion fires when price sits inside the outer 10% of its Bollinger
// band and RSI confirms the same extreme. Target is the band midline; stop is
// the opposite band edge padded by 2%.
type MeanReversion struct{}

func NewMeanReversion() *MeanReversion { return &MeanReversion{} }

func (r *MeanReversion) Name() string { return "mean_reversion" }

func (r *MeanReversion) Evaluate(_ context.Context, snap *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	price, ok := snap.LastClose()
	if !ok || price <= 0 {
		return nil, nil
	}
	ind := snap.Indicators
	if ind.Bollinger == nil || !ind.HasRSI {
		return nil, nil
	}
	b := *ind.Bollinger
	width := b.Upper - b.Lower
	if width <= 0 {
		return nil, nil
	}
	pos := (price - b.Lower) / width // 0 at lower band, 1 at upper

	var dir models.Direction
	var target, stop float64
	switch {
	case pos <= 0.10 && ind.RSI < 35:
		dir = models.DirectionBuy
		target = b.Middle
		stop = b.Lower * 0.98
	case pos >= 0.90 && ind.RSI > 65:
		dir = models.DirectionSell
		target = b.Middle
		stop = b.Upper * 1.02
	default:
		return nil, nil
	}

	conf := 0.55 + features.Clamp((0.10-minF(pos, 1-pos))*2, 0, 0.15)
	if ind.Stochastic != nil {
		if dir == models.DirectionBuy && ind.Stochastic.K < 20 {
			conf += 0.1
		} else if dir == models.DirectionSell && ind.Stochastic.K > 80 {
			conf += 0.1
		}
	}
	conf = features.Clamp(conf, 0, 0.9)

	return &models.StrategyPrediction{
		Strategy:          r.Name(),
		Direction:         dir,
		Confidence:        conf,
		EntryPrice:        price,
		TargetPrice:       target,
		StopPrice:         stop,
		ExpectedReturnPct: (target - price) / price * 100,
		Rationale:         fmt.Sprintf("band extreme: pos=%.2f rsi=%.1f", pos, ind.RSI),
		RawFeatures: map[string]float64{
			"band_pos": pos,
			"rsi":      ind.RSI,
		},
	}, nil
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

var _ domsvc.Evaluator = (*MeanReversion)(nil)
