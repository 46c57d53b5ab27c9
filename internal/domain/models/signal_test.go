package models

import (
	"errors"
	"testing"
	"time"
)

func TestSignalTransitionFromGenerated(t *testing.T) {
	for _, to := range []SignalStatus{SignalExecuted, SignalCancelled, SignalExpired} {
		s := Signal{ID: "s1", Status: SignalGenerated}
		if err := s.Transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if s.Status != to {
			t.Fatalf("expected %s, got %s", to, s.Status)
		}
	}
}

func TestSignalTransitionFromTerminal(t *testing.T) {
	for _, from := range []SignalStatus{SignalExecuted, SignalCancelled, SignalExpired} {
		s := Signal{ID: "s1", Status: from}
		if err := s.Transition(SignalExpired); err == nil {
			t.Fatalf("expected error transitioning from %s", from)
		}
		if s.Status != from {
			t.Fatalf("status mutated on rejected transition: %s", s.Status)
		}
	}
}

func TestSignalTransitionInvalidTarget(t *testing.T) {
	s := Signal{ID: "s1", Status: SignalGenerated}
	if err := s.Transition(SignalGenerated); err == nil {
		t.Fatalf("expected error on generated -> generated")
	}
}

func TestSignalIsFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Signal{Status: SignalGenerated, CreatedAt: now.Add(-30 * time.Minute)}
	if !s.IsFresh(now, time.Hour) {
		t.Fatalf("expected fresh")
	}
	if s.IsFresh(now, 10*time.Minute) {
		t.Fatalf("expected stale past max age")
	}
	s.Status = SignalExpired
	if s.IsFresh(now, time.Hour) {
		t.Fatalf("non-generated signal must never be fresh")
	}
}

func TestValidateBarSeriesAscending(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Bucket: base, Symbol: "AAPL", Open: 100, High: 101, Low: 99, Close: 100.5},
		{Bucket: base.Add(time.Hour), Symbol: "AAPL", Open: 100.5, High: 102, Low: 100, Close: 101},
	}
	if err := ValidateBarSeries(bars); err != nil {
		t.Fatalf("valid series rejected: %v", err)
	}
}

func TestValidateBarSeriesOutOfOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Bucket: base.Add(time.Hour), Open: 100, High: 101, Low: 99, Close: 100},
		{Bucket: base, Open: 100, High: 101, Low: 99, Close: 100},
	}
	err := ValidateBarSeries(bars)
	if !errors.Is(err, ErrInvalidBarSequence) {
		t.Fatalf("expected ErrInvalidBarSequence, got %v", err)
	}
}

func TestValidateBarSeriesDuplicateTimestamp(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Bucket: base, Open: 100, High: 101, Low: 99, Close: 100},
		{Bucket: base, Open: 100, High: 101, Low: 99, Close: 100},
	}
	if err := ValidateBarSeries(bars); !errors.Is(err, ErrInvalidBarSequence) {
		t.Fatalf("expected ErrInvalidBarSequence for equal timestamps, got %v", err)
	}
}

func TestBarValidateOHLC(t *testing.T) {
	bad := Bar{Open: 100, High: 99, Low: 98, Close: 100} // high below open
	if err := bad.Validate(); !errors.Is(err, ErrInvalidBarSequence) {
		t.Fatalf("expected ErrInvalidBarSequence, got %v", err)
	}
	bad = Bar{Open: 100, High: 101, Low: 100.5, Close: 101} // low above open
	if err := bad.Validate(); !errors.Is(err, ErrInvalidBarSequence) {
		t.Fatalf("expected ErrInvalidBarSequence, got %v", err)
	}
	ok := Bar{Open: 100, High: 100, Low: 100, Close: 100} // flat bar is legal
	if err := ok.Validate(); err != nil {
		t.Fatalf("flat bar rejected: %v", err)
	}
}

func TestSummarizeNewsEmpty(t *testing.T) {
	sum := SummarizeNews(nil)
	if sum.Overall != 0 || sum.Volume != 0 || sum.Momentum != 0 {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}

func TestSummarizeNewsMomentum(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// older half negative, recent half positive: positive momentum
	items := []NewsItem{
		{SentimentScore: -0.4, PublishedAt: base},
		{SentimentScore: -0.2, PublishedAt: base.Add(time.Hour)},
		{SentimentScore: 0.3, PublishedAt: base.Add(2 * time.Hour)},
		{SentimentScore: 0.5, PublishedAt: base.Add(3 * time.Hour)},
	}
	sum := SummarizeNews(items)
	if sum.Volume != 4 {
		t.Fatalf("volume = %d", sum.Volume)
	}
	if sum.Momentum <= 0 {
		t.Fatalf("expected positive momentum, got %f", sum.Momentum)
	}
	want := (-0.4 - 0.2 + 0.3 + 0.5) / 4
	if diff := sum.Overall - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("overall = %f, want %f", sum.Overall, want)
	}
}

func TestSummarizeNewsOrderInvariant(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	asc := []NewsItem{
		{SentimentScore: -0.4, PublishedAt: base},
		{SentimentScore: 0.6, PublishedAt: base.Add(time.Hour)},
	}
	desc := []NewsItem{asc[1], asc[0]}
	a, b := SummarizeNews(asc), SummarizeNews(desc)
	if a != b {
		t.Fatalf("summary depends on input order: %+v vs %+v", a, b)
	}
}

func TestStrategyPredictionHasLevels(t *testing.T) {
	p := StrategyPrediction{TargetPrice: 105, StopPrice: 0}
	if p.HasLevels() {
		t.Fatalf("missing stop must not count as levels")
	}
	p.StopPrice = 95
	if !p.HasLevels() {
		t.Fatalf("expected levels present")
	}
}
