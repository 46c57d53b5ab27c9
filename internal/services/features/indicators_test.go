package features

import (
	"math"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
)

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	if got := RSI(up, 14); got != 100 {
		t.Fatalf("all gains should give RSI 100, got %f", got)
	}
	down := make([]float64, 20)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	if got := RSI(down, 14); got != 0 {
		t.Fatalf("all losses should give RSI 0, got %f", got)
	}
	if got := RSI([]float64{100, 101}, 14); got != 50 {
		t.Fatalf("short series should give neutral RSI, got %f", got)
	}
}

func TestSMA(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	got, ok := SMA(xs, 3)
	if !ok || got != 4 {
		t.Fatalf("SMA(3) = %f, %v", got, ok)
	}
	if _, ok := SMA(xs, 6); ok {
		t.Fatalf("expected not ok for period > len")
	}
}

func TestEMAConvergesToConstant(t *testing.T) {
	xs := make([]float64, 50)
	for i := range xs {
		xs[i] = 42
	}
	out := EMA(xs, 10)
	if math.Abs(out[len(out)-1]-42) > 1e-9 {
		t.Fatalf("EMA of constant series = %f", out[len(out)-1])
	}
}

func TestComputeBollingerSymmetry(t *testing.T) {
	xs := make([]float64, 20)
	for i := range xs {
		xs[i] = 100 + float64(i%2) // alternate 100, 101
	}
	b := ComputeBollinger(xs, 20, 2)
	if b.Middle != 100.5 {
		t.Fatalf("middle = %f", b.Middle)
	}
	if math.Abs((b.Upper-b.Middle)-(b.Middle-b.Lower)) > 1e-9 {
		t.Fatalf("bands not symmetric: %+v", b)
	}
	if b.Upper <= b.Middle {
		t.Fatalf("upper band must exceed middle for non-constant series")
	}
}

func TestATRFlatBars(t *testing.T) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 20)
	for i := range bars {
		bars[i] = models.Bar{Bucket: base.Add(time.Duration(i) * time.Hour), Open: 100, High: 102, Low: 98, Close: 100}
	}
	if got := ATR(bars, 14); got != 4 {
		t.Fatalf("ATR of constant-range bars = %f, want 4", got)
	}
	if got := ATR(bars[:5], 14); got != 0 {
		t.Fatalf("short series should give 0, got %f", got)
	}
}

func TestSupportResistance(t *testing.T) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 20)
	for i := range bars {
		lo := 90 + float64(i)
		hi := 110 + float64(i)
		bars[i] = models.Bar{Bucket: base.Add(time.Duration(i) * time.Hour), Open: lo + 5, High: hi, Low: lo, Close: hi - 5}
	}
	support, resistance := SupportResistance(bars, 20)
	if support >= resistance {
		t.Fatalf("support %f must sit below resistance %f", support, resistance)
	}
	if support < 90 || resistance > 129 {
		t.Fatalf("levels outside observed range: %f, %f", support, resistance)
	}
}

func TestComputeStochasticRange(t *testing.T) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 30)
	for i := range bars {
		c := 100 + math.Sin(float64(i))*5
		bars[i] = models.Bar{Bucket: base.Add(time.Duration(i) * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	st := ComputeStochastic(bars, 14, 3)
	if st.K < 0 || st.K > 100 || st.D < 0 || st.D > 100 {
		t.Fatalf("oscillator out of range: %+v", st)
	}
}

func TestSimpleReturns(t *testing.T) {
	rets := SimpleReturns([]float64{100, 110, 99})
	if len(rets) != 2 {
		t.Fatalf("len = %d", len(rets))
	}
	if math.Abs(rets[0]-0.1) > 1e-9 || math.Abs(rets[1]+0.1) > 1e-9 {
		t.Fatalf("returns = %v", rets)
	}
	if SimpleReturns([]float64{100}) != nil {
		t.Fatalf("single close should give nil")
	}
}

func TestComputeIndicatorSetCoverage(t *testing.T) {
	bars := trendBars(60, 100, 0.25)
	set := ComputeIndicatorSet(bars)
	if !set.HasRSI || set.MACD == nil || set.Bollinger == nil || !set.HasATR || set.Stochastic == nil {
		t.Fatalf("60 bars should yield every indicator: %+v", set)
	}
	for _, p := range []int{10, 20, 50} {
		if _, ok := set.SMA[p]; !ok {
			t.Fatalf("missing SMA %d", p)
		}
	}
	short := ComputeIndicatorSet(bars[:10])
	if short.HasRSI || short.MACD != nil {
		t.Fatalf("10 bars should not produce RSI/MACD")
	}
}
