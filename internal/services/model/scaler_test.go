package model

import (
	"math"
	"testing"
)

func TestFitScalerStandardizes(t *testing.T) {
	samples := [][]float64{
		{1, 10},
		{3, 10},
		{5, 10},
	}
	s := FitScaler(samples)
	if s.Mean[0] != 3 {
		t.Fatalf("mean = %f", s.Mean[0])
	}
	// zero-variance feature keeps std 1 so Transform never divides by zero
	if s.Std[1] != 1 {
		t.Fatalf("constant feature std = %f, want 1", s.Std[1])
	}
	out := s.Transform([]float64{3, 10})
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("mean input should map to zero: %v", out)
	}
	for _, v := range s.Transform([]float64{5, 11}) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("transform produced %f", v)
		}
	}
}

func TestFitScalerEmpty(t *testing.T) {
	s := FitScaler(nil)
	out := s.Transform([]float64{1, 2})
	if len(out) != 2 || out[0] != 1 || out[1] != 2 {
		t.Fatalf("dimension mismatch should pass through: %v", out)
	}
}

func TestPredictorScoreBounded(t *testing.T) {
	samples := [][]float64{
		{-1}, {-0.5}, {0}, {0.5}, {1},
	}
	labels := []float64{-0.02, -0.01, 0, 0.01, 0.02}
	p, metrics := Fit(samples, labels)
	if metrics.Samples != 5 {
		t.Fatalf("samples = %d", metrics.Samples)
	}
	if metrics.R2 <= 0.9 {
		t.Fatalf("perfectly linear labels should fit well, R2 = %f", metrics.R2)
	}
	for _, x := range []float64{-100, -1, 0, 1, 100} {
		score := p.Score([]float64{x})
		if score < -1 || score > 1 {
			t.Fatalf("score(%f) = %f out of [-1,1]", x, score)
		}
	}
	if p.Score([]float64{1}) <= p.Score([]float64{-1}) {
		t.Fatalf("positive relationship should order scores")
	}
}

func TestReturnClassThresholds(t *testing.T) {
	cases := []struct {
		r    float64
		want int
	}{
		{0.05, 1}, {BuyClassThreshold, 1},
		{0.019, 0}, {0, 0}, {-0.019, 0},
		{SellClassThreshold, -1}, {-0.05, -1},
	}
	for _, c := range cases {
		if got := returnClass(c.r); got != c.want {
			t.Fatalf("returnClass(%f) = %d, want %d", c.r, got, c.want)
		}
	}
}

func TestPredictorClassAccuracy(t *testing.T) {
	// Labels sit well clear of the class thresholds so the exact fit
	// reproduces every class.
	samples := [][]float64{{-1}, {-1}, {0}, {1}, {1}}
	labels := []float64{-0.05, -0.05, 0, 0.05, 0.05}
	_, metrics := Fit(samples, labels)
	if metrics.ClassAccuracy != 1 {
		t.Fatalf("exact fit should hit every class, accuracy = %f", metrics.ClassAccuracy)
	}
}

func TestPredictorFitEmpty(t *testing.T) {
	p, metrics := Fit(nil, nil)
	if metrics.Samples != 0 {
		t.Fatalf("samples = %d", metrics.Samples)
	}
	if s := p.Score([]float64{1, 2, 3}); math.IsNaN(s) || math.IsInf(s, 0) {
		t.Fatalf("empty fit should still score finitely, got %f", s)
	}
}
