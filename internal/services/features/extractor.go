package features

import (
	"fmt"
	"math"

	"QuantSig/internal/domain/models"
)

// MinBars is the smallest bar window the extractor accepts.
const MinBars = 30

// DefaultVolatility substitutes for the 20-bar volatility when the sample is
// too small or constant, guarding later ratio computations.
const DefaultVolatility = 0.01

// Extract turns a market snapshot into the fixed 14-feature vector. It is
// pure: identical inputs always produce identical output.
func Extract(snap *models.MarketSnapshot) (models.FeatureVector, error) {
	bars := snap.Bars
	if len(bars) < MinBars {
		return models.FeatureVector{}, fmt.Errorf("%w: need %d bars, got %d", models.ErrInsufficientData, MinBars, len(bars))
	}

	closes := Closes(bars)
	vols := Volumes(bars)
	last := closes[len(closes)-1]

	fv := models.FeatureVector{
		PriceChange1:  pctChange(closes, 1),
		PriceChange5:  pctChange(closes, 5),
		PriceChange20: pctChange(closes, 20),
		Volatility20:  Volatility20(closes),
	}

	rsi := snap.Indicators.RSI
	if !snap.Indicators.HasRSI {
		rsi = RSI(closes, 14)
	}
	fv.RSINorm = (rsi - 50) / 50

	macd := snap.Indicators.MACD
	if macd == nil {
		m := ComputeMACD(closes)
		macd = &m
	}
	if last > 0 {
		fv.MACDHist = macd.Histogram / last
	}

	boll := snap.Indicators.Bollinger
	if boll == nil {
		b := ComputeBollinger(closes, 20, 2)
		boll = &b
	}
	fv.BollPosition = BollingerPosition(last, *boll)

	fv.LogVolRatio = logVolRatio(vols, 20)
	fv.TrendSlope = Clamp(TrendSlope(closes, 20)*100, -1, 1)

	support, resistance := SupportResistance(bars, 20)
	fv.SRDistance = srDistance(last, support, resistance)
	fv.PatternScore = patternScore(bars)
	fv.NewsSentiment = models.SummarizeNews(snap.News).Overall
	fv.RegimeScore = regimeScore(closes)
	fv.Seasonality = seasonality(bars[len(bars)-1])

	return fv, nil
}

// Volatility20 is the sample stddev of the last 20 simple returns, defaulting
// to DefaultVolatility for degenerate samples.
func Volatility20(closes []float64) float64 {
	rets := SimpleReturns(closes)
	if len(rets) < 20 {
		return DefaultVolatility
	}
	sd := StdDev(rets[len(rets)-20:])
	if sd <= 0 {
		return DefaultVolatility
	}
	return sd
}

// BollingerPosition rescales price position inside the band to [-1,1].
func BollingerPosition(price float64, b models.Bollinger) float64 {
	half := b.Upper - b.Middle
	if half <= 0 {
		return 0
	}
	return Clamp((price-b.Middle)/half, -1, 1)
}

func pctChange(closes []float64, lag int) float64 {
	n := len(closes)
	if n <= lag || closes[n-1-lag] == 0 {
		return 0
	}
	return closes[n-1]/closes[n-1-lag] - 1
}

// logVolRatio log-normalizes current volume against its trailing average to
// bound outliers.
func logVolRatio(vols []float64, window int) float64 {
	if len(vols) < window+1 {
		return 0
	}
	avg := Mean(vols[len(vols)-1-window : len(vols)-1])
	cur := vols[len(vols)-1]
	if avg <= 0 || cur <= 0 {
		return 0
	}
	return math.Log(cur / avg)
}

func srDistance(price, support, resistance float64) float64 {
	span := resistance - support
	if span <= 0 || price <= 0 {
		return 0
	}
	// -1 at support, +1 at resistance
	return Clamp(2*(price-support)/span-1, -1, 1)
}

// patternScore scores the last three candles by body direction and strength.
func patternScore(bars []models.Bar) float64 {
	n := len(bars)
	if n < 3 {
		return 0
	}
	score := 0.0
	for i := n - 3; i < n; i++ {
		rng := bars[i].High - bars[i].Low
		if rng <= 0 {
			continue
		}
		score += (bars[i].Close - bars[i].Open) / rng
	}
	return Clamp(score/3, -1, 1)
}

// regimeScore compares the 10-bar and 30-bar moving averages as a coarse
// trend-regime measure.
func regimeScore(closes []float64) float64 {
	fast, ok1 := SMA(closes, 10)
	slow, ok2 := SMA(closes, 30)
	if !ok1 || !ok2 || slow == 0 {
		return 0
	}
	return Clamp((fast-slow)/slow*20, -1, 1)
}

// seasonality maps the bar's month onto a smooth annual cycle.
func seasonality(bar models.Bar) float64 {
	m := float64(bar.Bucket.Month() - 1)
	return math.Sin(2 * math.Pi * m / 12)
}
