package backtest

import "time"

// Mode selects the sizing and stop-placement rules.
type Mode string

const (
	// ModeQuick uses fixed-fractional sizing and a bar-range stop proxy.
	// Used for candidate-signal validation.
	ModeQuick Mode = "quick"
	// ModeComprehensive uses volatility-scaled sizing and ATR stops.
	ModeComprehensive Mode = "comprehensive"
)

// Config is the cost and sizing model for one simulation run.
type Config struct {
	Mode               Mode
	InitialCapital     float64
	SlippageRate       float64 // applied to both fills
	CommissionRate     float64 // charged on both notionals
	MaxPositionSizePct float64 // fraction of capital per position
	RiskPerTrade       float64 // comprehensive mode: capital fraction risked
	MaxHolding         time.Duration
	RiskFreeRate       float64 // for Sharpe
}

// WithDefaults fills zero fields with the standard cost model.
func (c Config) WithDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeQuick
	}
	if c.InitialCapital <= 0 {
		c.InitialCapital = 100_000
	}
	if c.SlippageRate <= 0 {
		c.SlippageRate = 0.0005
	}
	if c.CommissionRate <= 0 {
		c.CommissionRate = 0.001
	}
	if c.MaxPositionSizePct <= 0 {
		c.MaxPositionSizePct = 0.10
	}
	if c.RiskPerTrade <= 0 {
		c.RiskPerTrade = 0.02
	}
	if c.MaxHolding <= 0 {
		c.MaxHolding = 10 * time.Hour
	}
	if c.RiskFreeRate <= 0 {
		c.RiskFreeRate = 0.02
	}
	return c
}
