package models

import "time"

// Direction is the directional call of a prediction or signal.
type Direction string

const (
	DirectionBuy        Direction = "buy"
	DirectionSell       Direction = "sell"
	DirectionHold       Direction = "hold"
	DirectionStrongBuy  Direction = "strong_buy"
	DirectionStrongSell Direction = "strong_sell"
)

// MACD bundles the MACD line, its signal line, and the histogram.
type MACD struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// Bollinger holds the three band lines.
type Bollinger struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Stochastic holds the %K/%D oscillator values.
type Stochastic struct {
	K float64
	D float64
}

// IndicatorSet is the technical-indicator snapshot supplied to evaluators.
// A zero Valid flag on a member means the indicator could not be computed.
type IndicatorSet struct {
	RSI        float64
	HasRSI     bool
	MACD       *MACD
	Bollinger  *Bollinger
	ATR        float64
	HasATR     bool
	Stochastic *Stochastic
	SMA        map[int]float64 // period -> value
}

// MarketSnapshot is the shared context one evaluation cycle hands to every
// strategy evaluator: the bar window, indicators, and recent news.
type MarketSnapshot struct {
	Symbol     string
	Timeframe  string
	AsOf       time.Time
	Bars       []Bar // ascending
	Indicators IndicatorSet
	News       []NewsItem
}

// LastClose returns the close of the most recent bar, or 0 with ok=false
// when the window is empty.
func (s *MarketSnapshot) LastClose() (float64, bool) {
	if len(s.Bars) == 0 {
		return 0, false
	}
	return s.Bars[len(s.Bars)-1].Close, true
}

// StrategyPrediction is the output of one strategy evaluator. It is created
// and consumed within a single evaluation cycle.
type StrategyPrediction struct {
	Strategy          string
	Direction         Direction
	Confidence        float64 // [0,1]
	EntryPrice        float64
	TargetPrice       float64 // 0 when not proposed
	StopPrice         float64 // 0 when not proposed
	ExpectedReturnPct float64
	Rationale         string
	RawFeatures       map[string]float64
}

// HasLevels reports whether the prediction proposes both target and stop.
func (p *StrategyPrediction) HasLevels() bool {
	return p.TargetPrice > 0 && p.StopPrice > 0
}
