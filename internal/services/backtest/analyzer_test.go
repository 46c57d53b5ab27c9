package backtest

import (
	"math"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
)

func curveFrom(start time.Time, step time.Duration, equities ...float64) []models.EquityPoint {
	out := make([]models.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = models.EquityPoint{Time: start.Add(time.Duration(i) * step), Equity: e}
	}
	return out
}

func assertFinite(t *testing.T, r models.PerformanceReport) {
	t.Helper()
	vals := []float64{
		r.TotalReturnPct, r.AnnualizedReturn, r.Volatility, r.SharpeRatio,
		r.SortinoRatio, r.CalmarRatio, r.MaxDrawdownPct, r.WinRate,
		r.ProfitFactor, r.Expectancy, r.VaR95, r.CVaR95,
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("metric %d is %f", i, v)
		}
	}
}

func TestAnalyzeFlatCurve(t *testing.T) {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	curve := curveFrom(start, time.Hour, 100000, 100000, 100000, 100000)
	r := Analyze(100000, 100000, nil, curve, 0.02)
	assertFinite(t, r)
	if r.TotalReturnPct != 0 || r.SharpeRatio != 0 || r.MaxDrawdownPct != 0 {
		t.Fatalf("flat curve should zero out: %+v", r)
	}
	if r.TotalTrades != 0 || r.WinRate != 0 {
		t.Fatalf("no trades should zero trade stats: %+v", r)
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	r := Analyze(0, 0, nil, nil, 0.02)
	assertFinite(t, r)
}

func TestAnalyzeProfitFactorNoLosses(t *testing.T) {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := []models.BacktestTrade{
		{PnL: 500, PnLPct: 2, HoldingBars: 4},
		{PnL: 300, PnLPct: 1.5, HoldingBars: 3},
	}
	curve := curveFrom(start, time.Hour, 100000, 100500, 100800)
	r := Analyze(100000, 100800, trades, curve, 0.02)
	if r.ProfitFactor != 0 {
		t.Fatalf("no losing trades must report profit factor 0, got %f", r.ProfitFactor)
	}
	if r.WinRate != 1 {
		t.Fatalf("win rate = %f", r.WinRate)
	}
	if r.WinningTrades != 2 || r.LosingTrades != 0 {
		t.Fatalf("trade counts: %d/%d", r.WinningTrades, r.LosingTrades)
	}
	if r.LargestWinPct != 2 {
		t.Fatalf("largest win = %f", r.LargestWinPct)
	}
	assertFinite(t, r)
}

func TestAnalyzeMixedTrades(t *testing.T) {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := []models.BacktestTrade{
		{PnL: 1000, PnLPct: 4, HoldingBars: 2},
		{PnL: -500, PnLPct: -2, HoldingBars: 6},
	}
	curve := curveFrom(start, time.Hour, 100000, 101000, 100500)
	r := Analyze(100000, 100500, trades, curve, 0.02)
	if r.WinRate != 0.5 {
		t.Fatalf("win rate = %f", r.WinRate)
	}
	if r.ProfitFactor != 2 {
		t.Fatalf("profit factor = %f", r.ProfitFactor)
	}
	if r.AvgWinPct != 4 || r.AvgLossPct != 2 {
		t.Fatalf("avg win/loss = %f/%f", r.AvgWinPct, r.AvgLossPct)
	}
	if r.AvgHoldingBars != 4 {
		t.Fatalf("avg holding = %f", r.AvgHoldingBars)
	}
	// 0.5*4 - 0.5*2 = 1
	if math.Abs(r.Expectancy-1) > 1e-9 {
		t.Fatalf("expectancy = %f", r.Expectancy)
	}
}

func TestAnalyzeMaxDrawdown(t *testing.T) {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	curve := curveFrom(start, time.Hour, 100, 110, 99, 95, 105, 120)
	r := Analyze(100, 120, nil, curve, 0.02)
	// peak 110 -> trough 95
	want := (110.0 - 95.0) / 110.0 * 100
	if math.Abs(r.MaxDrawdownPct-want) > 1e-9 {
		t.Fatalf("drawdown = %f, want %f", r.MaxDrawdownPct, want)
	}
	// 99, 95, 105 all sit below the 110 peak
	if r.MaxDrawdownBars != 3 {
		t.Fatalf("drawdown bars = %d, want 3", r.MaxDrawdownBars)
	}
}

func TestAnalyzeMonthlyReturns(t *testing.T) {
	jan := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	curve := []models.EquityPoint{
		{Time: jan, Equity: 100},
		{Time: jan.AddDate(0, 0, 10), Equity: 110},
		{Time: feb, Equity: 110},
		{Time: feb.AddDate(0, 0, 10), Equity: 99},
	}
	r := Analyze(100, 99, nil, curve, 0.02)
	if len(r.MonthlyReturns) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %v", r.MonthlyReturns)
	}
	if math.Abs(r.MonthlyReturns["2025-01"]-10) > 1e-9 {
		t.Fatalf("jan = %f", r.MonthlyReturns["2025-01"])
	}
	if math.Abs(r.MonthlyReturns["2025-02"]+10) > 1e-9 {
		t.Fatalf("feb = %f", r.MonthlyReturns["2025-02"])
	}
}

func TestTailRiskLossySeries(t *testing.T) {
	rets := make([]float64, 100)
	for i := range rets {
		rets[i] = 0.001
	}
	for i := 0; i < 10; i++ {
		rets[i] = -0.01 * float64(10-i)
	}
	var95, cvar95 := tailRisk(rets)
	if math.Abs(var95-5) > 1e-9 {
		t.Fatalf("VaR = %f, want 5", var95)
	}
	if cvar95 < var95 {
		t.Fatalf("CVaR %f should be at least VaR %f", cvar95, var95)
	}
}
