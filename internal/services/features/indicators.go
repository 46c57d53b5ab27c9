package features

import (
	"math"

	"QuantSig/internal/domain/models"
)

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation of xs.
func StdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	v := sum2 / float64(n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// Closes extracts the close series from a bar window.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}

// Volumes extracts the volume series from a bar window.
func Volumes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Volume
	}
	return out
}

// SimpleReturns computes r_t = C_t/C_{t-1} - 1 over the close series.
// Returns a slice of length len(closes)-1, or nil if insufficient data.
func SimpleReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/prev-1)
	}
	return out
}

// SMA computes the simple moving average over the last period values.
// Returns 0 with ok=false when fewer than period values are available.
func SMA(xs []float64, period int) (float64, bool) {
	if period <= 0 || len(xs) < period {
		return 0, false
	}
	return Mean(xs[len(xs)-period:]), true
}

// EMA computes the exponential moving average series with the given span.
func EMA(xs []float64, span int) []float64 {
	if span <= 0 || len(xs) == 0 {
		return nil
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the Relative Strength Index over the last period deltas.
// Returns 50 (neutral) when fewer than period+1 closes are supplied.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d >= 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// ComputeMACD computes the 12/26/9 MACD from the close series.
func ComputeMACD(closes []float64) models.MACD {
	if len(closes) < 26 {
		return models.MACD{}
	}
	fast := EMA(closes, 12)
	slow := EMA(closes, 26)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	sig := EMA(line, 9)
	last := len(closes) - 1
	return models.MACD{
		MACD:      line[last],
		Signal:    sig[last],
		Histogram: line[last] - sig[last],
	}
}

// ComputeBollinger computes period/k Bollinger bands from the close series.
func ComputeBollinger(closes []float64, period int, k float64) models.Bollinger {
	if len(closes) < period {
		return models.Bollinger{}
	}
	win := closes[len(closes)-period:]
	mid := Mean(win)
	sd := StdDev(win)
	return models.Bollinger{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}
}

// ATR computes the average true range over the last period bars.
func ATR(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		if d := math.Abs(bars[i].High - bars[i-1].Close); d > tr {
			tr = d
		}
		if d := math.Abs(bars[i].Low - bars[i-1].Close); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(period)
}

// ComputeStochastic computes the %K/%D oscillator over the last kPeriod bars,
// with %D as a dPeriod SMA of %K.
func ComputeStochastic(bars []models.Bar, kPeriod, dPeriod int) models.Stochastic {
	if len(bars) < kPeriod+dPeriod-1 {
		return models.Stochastic{K: 50, D: 50}
	}
	kAt := func(end int) float64 {
		lo, hi := bars[end].Low, bars[end].High
		for i := end - kPeriod + 1; i <= end; i++ {
			if bars[i].Low < lo {
				lo = bars[i].Low
			}
			if bars[i].High > hi {
				hi = bars[i].High
			}
		}
		if hi == lo {
			return 50
		}
		return 100 * (bars[end].Close - lo) / (hi - lo)
	}
	last := len(bars) - 1
	dSum := 0.0
	for i := last - dPeriod + 1; i <= last; i++ {
		dSum += kAt(i)
	}
	return models.Stochastic{K: kAt(last), D: dSum / float64(dPeriod)}
}

// SupportResistance estimates support and resistance over the window as the
// mean of the lowest/highest quartile of lows/highs.
func SupportResistance(bars []models.Bar, window int) (support, resistance float64) {
	if len(bars) < window {
		window = len(bars)
	}
	if window == 0 {
		return 0, 0
	}
	win := bars[len(bars)-window:]
	lows := make([]float64, len(win))
	highs := make([]float64, len(win))
	for i, b := range win {
		lows[i] = b.Low
		highs[i] = b.High
	}
	sortFloats(lows)
	sortFloats(highs)
	q := len(win) / 4
	if q == 0 {
		q = 1
	}
	return Mean(lows[:q]), Mean(highs[len(highs)-q:])
}

// TrendSlope fits a least-squares line to the last window closes and returns
// the per-bar slope normalized by the mean close.
func TrendSlope(closes []float64, window int) float64 {
	if len(closes) < window || window < 2 {
		return 0
	}
	win := closes[len(closes)-window:]
	n := float64(window)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range win {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	mean := sumY / n
	if mean == 0 {
		return 0
	}
	return slope / mean
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
