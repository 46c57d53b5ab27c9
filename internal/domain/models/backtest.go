package models

import "time"

// TradeSide is the direction of a simulated position.
type TradeSide string

const (
	SideLong  TradeSide = "long"
	SideShort TradeSide = "short"
)

// ExitReason records why a simulated position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitTimeout    ExitReason = "timeout"
	ExitEndOfData  ExitReason = "end_of_data"
)

// BacktestTrade is one completed round-trip within a simulation. Immutable
// after creation.
type BacktestTrade struct {
	ID           string
	Symbol       string
	Side         TradeSide
	EntryTime    time.Time
	ExitTime     time.Time
	EntryPrice   float64
	ExitPrice    float64
	Quantity     float64
	PnL          float64
	PnLPct       float64
	HoldingBars  int
	ExitReason   ExitReason
	MaxFavorable float64 // best unrealized PnL% while open
	MaxAdverse   float64 // worst unrealized PnL% while open
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// PerformanceReport is the full metric set computed from a simulation.
// All ratios degrade to 0 when their denominator is 0.
type PerformanceReport struct {
	TotalReturnPct    float64
	AnnualizedReturn  float64
	Volatility        float64
	SharpeRatio       float64
	SortinoRatio      float64
	CalmarRatio       float64
	MaxDrawdownPct    float64
	MaxDrawdownBars   int
	WinRate           float64
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	AvgWinPct         float64
	AvgLossPct        float64
	ProfitFactor      float64
	Expectancy        float64
	VaR95             float64
	CVaR95            float64
	LargestWinPct     float64
	LargestLossPct    float64
	AvgHoldingBars    float64
	MonthlyReturns    map[string]float64 // "2025-01" -> pct
}

// BacktestResult is the aggregate report for one simulation run. One result
// is produced per invocation; never mutated after creation.
type BacktestResult struct {
	ID             string
	Symbol         string
	Strategy       string
	Timeframe      string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalCapital   float64
	Trades         []BacktestTrade
	EquityCurve    []EquityPoint
	Metrics        PerformanceReport
}
