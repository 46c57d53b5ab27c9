package strategy

import (
	"context"
	"fmt"
	"math"

	"QuantSig/internal/domain/models"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/features"
)

// Momentum fires only when both the 1-bar and 5-bar returns exceed their
// magnitude thresholds in the same direction with volume at least 1.5x the
// 10-bar average. RSI confirms but never gates.
type Momentum struct{}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

const (
	ret1Threshold   = 0.02
	ret5Threshold   = 0.05
	volumeThreshold = 1.5
)

func (m *Momentum) Evaluate(_ context.Context, snap *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	if len(snap.Bars) < 21 {
		return nil, nil
	}
	closes := features.Closes(snap.Bars)
	vols := features.Volumes(snap.Bars)
	price := closes[len(closes)-1]
	if price <= 0 {
		return nil, nil
	}

	r1 := closes[len(closes)-1]/closes[len(closes)-2] - 1
	r5 := closes[len(closes)-1]/closes[len(closes)-6] - 1
	r20 := closes[len(closes)-1]/closes[len(closes)-21] - 1

	avgVol := features.Mean(vols[len(vols)-11 : len(vols)-1])
	if avgVol <= 0 {
		return nil, nil
	}
	volRatio := vols[len(vols)-1] / avgVol

	if math.Abs(r1) < ret1Threshold || math.Abs(r5) < ret5Threshold || r1*r5 <= 0 || volRatio < volumeThreshold {
		return nil, nil
	}

	dir := models.DirectionBuy
	if r1 < 0 {
		dir = models.DirectionSell
	}
	conf := 0.5 + features.Clamp(math.Abs(r5)*2, 0, 0.2)
	if volRatio >= 2*volumeThreshold {
		conf += 0.05
	}
	// RSI agreement is confirming only
	if snap.Indicators.HasRSI {
		if dir == models.DirectionBuy && snap.Indicators.RSI > 50 {
			conf += 0.1
		} else if dir == models.DirectionSell && snap.Indicators.RSI < 50 {
			conf += 0.1
		}
	}
	conf = features.Clamp(conf, 0, 0.85)

	atr := snap.Indicators.ATR
	if !snap.Indicators.HasATR || atr <= 0 {
		atr = price * 0.02
	}
	target, stop := price+2*atr, price-atr
	if dir == models.DirectionSell {
		target, stop = price-2*atr, price+atr
	}

	return &models.StrategyPrediction{
		Strategy:          m.Name(),
		Direction:         dir,
		Confidence:        conf,
		EntryPrice:        price,
		TargetPrice:       target,
		StopPrice:         stop,
		ExpectedReturnPct: (target - price) / price * 100,
		Rationale:         fmt.Sprintf("momentum burst: r1=%.2f%% r5=%.2f%% vol=%.1fx", r1*100, r5*100, volRatio),
		RawFeatures: map[string]float64{
			"ret_1":     r1,
			"ret_5":     r5,
			"ret_20":    r20,
			"vol_ratio": volRatio,
		},
	}, nil
}

var _ domsvc.Evaluator = (*Momentum)(nil)
