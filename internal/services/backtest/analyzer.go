package backtest

import (
	"math"
	"sort"

	"QuantSig/internal/domain/models"
)

// periodsPerYear assumes 252 trading periods per year for annualization.
const periodsPerYear = 252.0

// Analyze computes the full performance report from a simulation's equity
// curve and trade ledger. Pure function; every ratio degrades to 0 (never
// NaN or Inf) when its denominator is 0.
func Analyze(initialCapital, finalCapital float64, trades []models.BacktestTrade, curve []models.EquityPoint, riskFreeRate float64) models.PerformanceReport {
	r := models.PerformanceReport{
		TotalTrades:    len(trades),
		MonthlyReturns: monthlyReturns(curve),
	}
	if initialCapital > 0 {
		r.TotalReturnPct = (finalCapital - initialCapital) / initialCapital * 100
	}

	rets := periodReturns(curve)
	if n := len(rets); n > 0 && initialCapital > 0 && finalCapital > 0 {
		r.AnnualizedReturn = (math.Pow(finalCapital/initialCapital, periodsPerYear/float64(n)) - 1) * 100
	}
	if sd := stdDev(rets); sd > 0 {
		r.Volatility = sd * math.Sqrt(periodsPerYear) * 100
	}
	if r.Volatility > 0 {
		r.SharpeRatio = (r.AnnualizedReturn - riskFreeRate*100) / r.Volatility
	}
	if dd := downsideDeviation(rets); dd > 0 {
		r.SortinoRatio = (r.AnnualizedReturn - riskFreeRate*100) / (dd * math.Sqrt(periodsPerYear) * 100)
	}

	r.MaxDrawdownPct, r.MaxDrawdownBars = maxDrawdown(curve)
	if r.MaxDrawdownPct > 0 {
		r.CalmarRatio = r.AnnualizedReturn / r.MaxDrawdownPct
	}

	r.VaR95, r.CVaR95 = tailRisk(rets)
	fillTradeStats(&r, trades)
	return r
}

func periodReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

func stdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(n-1))
}

// downsideDeviation is the stddev variant over negative-period returns only.
func downsideDeviation(rets []float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	sum2 := 0.0
	for _, x := range rets {
		if x < 0 {
			sum2 += x * x
		}
	}
	return math.Sqrt(sum2 / float64(len(rets)))
}

// maxDrawdown returns the peak-to-trough decline percentage and the longest
// contiguous run of positive drawdown in bars.
func maxDrawdown(curve []models.EquityPoint) (pct float64, bars int) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	run := 0
	for _, p := range curve {
		if p.Equity >= peak {
			peak = p.Equity
			run = 0
			continue
		}
		run++
		if run > bars {
			bars = run
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak * 100; dd > pct {
				pct = dd
			}
		}
	}
	return pct, bars
}

// tailRisk computes the 95% historical VaR and CVaR over period returns,
// reported as positive loss percentages.
func tailRisk(rets []float64) (var95, cvar95 float64) {
	if len(rets) == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(rets))
	copy(sorted, rets)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * 0.05)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if sorted[idx] < 0 {
		var95 = -sorted[idx] * 100
	}
	sum, n := 0.0, 0
	for _, x := range sorted[:idx+1] {
		if x < 0 {
			sum += x
			n++
		}
	}
	if n > 0 {
		cvar95 = -sum / float64(n) * 100
	}
	return var95, cvar95
}

func fillTradeStats(r *models.PerformanceReport, trades []models.BacktestTrade) {
	if len(trades) == 0 {
		return
	}
	var grossWin, grossLoss, winPctSum, lossPctSum, holdSum float64
	for _, t := range trades {
		holdSum += float64(t.HoldingBars)
		if t.PnL > 0 {
			r.WinningTrades++
			grossWin += t.PnL
			winPctSum += t.PnLPct
			if t.PnLPct > r.LargestWinPct {
				r.LargestWinPct = t.PnLPct
			}
		} else {
			r.LosingTrades++
			grossLoss += -t.PnL
			lossPctSum += -t.PnLPct
			if -t.PnLPct > r.LargestLossPct {
				r.LargestLossPct = -t.PnLPct
			}
		}
	}
	r.WinRate = float64(r.WinningTrades) / float64(len(trades))
	r.AvgHoldingBars = holdSum / float64(len(trades))
	if r.WinningTrades > 0 {
		r.AvgWinPct = winPctSum / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLossPct = lossPctSum / float64(r.LosingTrades)
	}
	// profit factor defined as 0, not infinity, when there are no losses
	if grossLoss > 0 {
		r.ProfitFactor = grossWin / grossLoss
	}
	r.Expectancy = r.WinRate*r.AvgWinPct - (1-r.WinRate)*r.AvgLossPct
}

func monthlyReturns(curve []models.EquityPoint) map[string]float64 {
	out := make(map[string]float64)
	if len(curve) < 2 {
		return out
	}
	monthStart := make(map[string]float64)
	monthEnd := make(map[string]float64)
	for _, p := range curve {
		key := p.Time.Format("2006-01")
		if _, ok := monthStart[key]; !ok {
			monthStart[key] = p.Equity
		}
		monthEnd[key] = p.Equity
	}
	for key, start := range monthStart {
		if start > 0 {
			out[key] = (monthEnd[key] - start) / start * 100
		}
	}
	return out
}
