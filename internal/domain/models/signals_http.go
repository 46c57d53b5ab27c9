package models

// Requests for the signal and backtest HTTP endpoints. Defined in domain for
// consistency and reuse.

type GenerateSignalRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d 1w"`
}

type QuickBacktestRequest struct {
	Symbol       string `query:"symbol" json:"symbol" validate:"required"`
	Timeframe    string `query:"timeframe" json:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d 1w"`
	Direction    string `query:"direction" json:"direction" default:"buy" validate:"oneof=buy sell"`
	LookbackDays int    `query:"lookback_days" json:"lookback_days" default:"7" validate:"gte=1,lte=90"`
}

type FullBacktestRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	Strategy  string `json:"strategy" default:"ensemble" validate:"oneof=ensemble technical momentum mean_reversion sentiment predictive"`
	Timeframe string `json:"timeframe" default:"1d" validate:"oneof=1m 5m 15m 1h 4h 1d 1w"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`

	InitialCapital float64 `json:"initial_capital" default:"100000" validate:"gt=0"`
	MaxPositionPct float64 `json:"max_position_pct" default:"0.1" validate:"gt=0,lte=1"`
	RiskPerTrade   float64 `json:"risk_per_trade" default:"0.02" validate:"gt=0,lte=0.5"`
}

type ModelInfoRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type RetrainRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type ActiveSignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type SignalStatsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
}

type GetBarsRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1m" validate:"oneof=1m 5m 15m 1h 4h 1d 1w"`
	N         int    `query:"n" json:"n" default:"600" validate:"gte=1,lte=10000"`
}
