package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
)

func trendBars(n int, start float64, step float64) []models.Bar {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := start
	for i := range bars {
		open := price
		price += step
		hi, lo := open, price
		if hi < price {
			hi = price
		}
		if lo > open {
			lo = open
		}
		bars[i] = models.Bar{
			Bucket: base.Add(time.Duration(i) * time.Hour),
			Symbol: "AAPL",
			Open:   open,
			High:   hi + 0.5,
			Low:    lo - 0.5,
			Close:  price,
			Volume: 1000 + float64(i%7)*50,
		}
	}
	return bars
}

func TestExtractInsufficientData(t *testing.T) {
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: trendBars(MinBars-1, 100, 0.5)}
	_, err := Extract(snap)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestExtractDeterministic(t *testing.T) {
	bars := trendBars(60, 100, 0.5)
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: bars, Indicators: ComputeIndicatorSet(bars)}
	a, err := Extract(snap)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	b, err := Extract(snap)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if a != b {
		t.Fatalf("identical input produced different vectors:\n%+v\n%+v", a, b)
	}
}

func TestExtractTrendingSeries(t *testing.T) {
	bars := trendBars(60, 100, 0.5)
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: bars, Indicators: ComputeIndicatorSet(bars)}
	fv, err := Extract(snap)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fv == (models.FeatureVector{}) {
		t.Fatalf("expected non-zero vector for a trending series")
	}
	if fv.PriceChange1 <= 0 || fv.PriceChange20 <= 0 {
		t.Fatalf("uptrend should show positive returns: %+v", fv)
	}
	if fv.TrendSlope <= 0 {
		t.Fatalf("uptrend should show positive slope: %f", fv.TrendSlope)
	}
	if fv.RSINorm <= 0 {
		t.Fatalf("steady uptrend should push RSI above 50: %f", fv.RSINorm)
	}
	for i, x := range fv.Slice() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("feature %d is %f", i, x)
		}
	}
	if got := len(fv.Slice()); got != models.NumFeatures {
		t.Fatalf("Slice length %d, want %d", got, models.NumFeatures)
	}
}

func TestExtractFlatSeriesDefaults(t *testing.T) {
	bars := trendBars(60, 100, 0)
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: bars}
	fv, err := Extract(snap)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fv.Volatility20 != DefaultVolatility {
		t.Fatalf("constant series should default volatility, got %f", fv.Volatility20)
	}
	if fv.PriceChange1 != 0 || fv.PriceChange20 != 0 {
		t.Fatalf("flat series should have zero returns: %+v", fv)
	}
}

func TestBollingerPosition(t *testing.T) {
	b := models.Bollinger{Upper: 110, Middle: 100, Lower: 90}
	if got := BollingerPosition(110, b); got != 1 {
		t.Fatalf("at upper band: %f", got)
	}
	if got := BollingerPosition(90, b); got != -1 {
		t.Fatalf("at lower band: %f", got)
	}
	if got := BollingerPosition(100, b); got != 0 {
		t.Fatalf("at middle: %f", got)
	}
	if got := BollingerPosition(120, b); got != 1 {
		t.Fatalf("beyond band must clamp: %f", got)
	}
	degenerate := models.Bollinger{Upper: 100, Middle: 100, Lower: 100}
	if got := BollingerPosition(105, degenerate); got != 0 {
		t.Fatalf("zero-width band should yield 0, got %f", got)
	}
}
