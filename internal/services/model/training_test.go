package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
)

func historyBars(n int) []models.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + 10*math.Sin(float64(i)/9) + float64(i)*0.05
		bars[i] = models.Bar{
			Bucket: base.AddDate(0, 0, i),
			Symbol: "AAPL",
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i%13)*40,
		}
	}
	return bars
}

func TestBuildTrainingSetTooFewBars(t *testing.T) {
	_, err := BuildTrainingSet("AAPL", historyBars(FeatureWindow+ForwardHorizon+MinSamples-1))
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestBuildTrainingSetRejectsBadSeries(t *testing.T) {
	bars := historyBars(120)
	bars[10], bars[50] = bars[50], bars[10]
	_, err := BuildTrainingSet("AAPL", bars)
	if !errors.Is(err, models.ErrInvalidBarSequence) {
		t.Fatalf("expected ErrInvalidBarSequence, got %v", err)
	}
}

func TestBuildTrainingSetShape(t *testing.T) {
	bars := historyBars(120)
	ts, err := BuildTrainingSet("AAPL", bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(ts.Samples) < MinSamples {
		t.Fatalf("samples = %d, want >= %d", len(ts.Samples), MinSamples)
	}
	if len(ts.Samples) != len(ts.Labels) {
		t.Fatalf("samples/labels mismatch: %d vs %d", len(ts.Samples), len(ts.Labels))
	}
	for i, s := range ts.Samples {
		if len(s) != models.NumFeatures {
			t.Fatalf("sample %d has %d features", i, len(s))
		}
	}
	// first label is the 5-bar forward return off the 30th bar
	entry := bars[FeatureWindow-1].Close
	exit := bars[FeatureWindow+ForwardHorizon-1].Close
	want := exit/entry - 1
	if math.Abs(ts.Labels[0]-want) > 1e-12 {
		t.Fatalf("label[0] = %f, want %f", ts.Labels[0], want)
	}
}

func TestBuildTrainingSetDeterministic(t *testing.T) {
	bars := historyBars(120)
	a, err := BuildTrainingSet("AAPL", bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := BuildTrainingSet("AAPL", bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(a.Samples) != len(b.Samples) {
		t.Fatalf("sample counts diverged")
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("label %d diverged", i)
		}
	}
}
