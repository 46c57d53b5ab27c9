package strategy

import (
	"context"
	"strings"

	"QuantSig/internal/domain/models"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/features"
)

// Technical combines RSI extremes, MACD histogram sign, Bollinger extremes,
// and 20/50 SMA trend alignment. Each confirming condition adds a fixed
// confidence increment, capped at 0.95.
type Technical struct{}

func NewTechnical() *Technical { return &Technical{} }

func (t *Technical) Name() string { return "technical" }

func (t *Technical) Evaluate(_ context.Context, snap *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	price, ok := snap.LastClose()
	if !ok || price <= 0 {
		return nil, nil
	}
	ind := snap.Indicators

	var bull, bear float64
	var bullWhy, bearWhy []string

	if ind.HasRSI {
		if ind.RSI < 30 {
			bull += 0.2
			bullWhy = append(bullWhy, "RSI oversold")
		} else if ind.RSI > 70 {
			bear += 0.2
			bearWhy = append(bearWhy, "RSI overbought")
		}
	}
	if ind.MACD != nil {
		if ind.MACD.Histogram > 0 {
			bull += 0.2
			bullWhy = append(bullWhy, "MACD histogram positive")
		} else if ind.MACD.Histogram < 0 {
			bear += 0.2
			bearWhy = append(bearWhy, "MACD histogram negative")
		}
	}
	if ind.Bollinger != nil && ind.Bollinger.Upper > ind.Bollinger.Lower {
		if price <= ind.Bollinger.Lower {
			bull += 0.15
			bullWhy = append(bullWhy, "price below lower Bollinger band")
		} else if price >= ind.Bollinger.Upper {
			bear += 0.15
			bearWhy = append(bearWhy, "price above upper Bollinger band")
		}
	}
	sma20, ok20 := ind.SMA[20]
	sma50, ok50 := ind.SMA[50]
	if ok20 && ok50 && sma50 > 0 {
		if sma20 > sma50 {
			bull += 0.1
			bullWhy = append(bullWhy, "20/50 SMA uptrend")
		} else if sma20 < sma50 {
			bear += 0.1
			bearWhy = append(bearWhy, "20/50 SMA downtrend")
		}
	}

	var dir models.Direction
	var score float64
	var why []string
	switch {
	case bull > bear:
		dir, score, why = models.DirectionBuy, bull-bear, bullWhy
	case bear > bull:
		dir, score, why = models.DirectionSell, bear-bull, bearWhy
	default:
		return nil, nil
	}
	// one weak condition alone is not a signal
	if score < 0.3 {
		return nil, nil
	}

	atr := ind.ATR
	if !ind.HasATR || atr <= 0 {
		atr = price * 0.02
	}
	target, stop := price+2*atr, price-atr
	if dir == models.DirectionSell {
		target, stop = price-2*atr, price+atr
	}
	conf := features.Clamp(0.5+score, 0, 0.95)

	return &models.StrategyPrediction{
		Strategy:          t.Name(),
		Direction:         dir,
		Confidence:        conf,
		EntryPrice:        price,
		TargetPrice:       target,
		StopPrice:         stop,
		ExpectedReturnPct: (target - price) / price * 100,
		Rationale:         strings.Join(why, " | "),
		RawFeatures: map[string]float64{
			"rsi":       ind.RSI,
			"atr":       atr,
			"bull":      bull,
			"bear":      bear,
		},
	}, nil
}

var _ domsvc.Evaluator = (*Technical)(nil)
