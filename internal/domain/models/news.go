package models

import "time"

// NewsItem is one scored news headline for a symbol.
type NewsItem struct {
	Symbol         string
	Headline       string
	SentimentScore float64 // [-1,1]
	Source         string
	PublishedAt    time.Time
}

// SentimentSummary aggregates a news window for the sentiment evaluator.
type SentimentSummary struct {
	Overall  float64 // mean sentiment, [-1,1]
	Volume   int     // number of items
	Momentum float64 // recent-half mean minus older-half mean
}

// SummarizeNews reduces a time-descending or ascending news window to its
// overall score, volume, and momentum. Momentum compares the more recent half
// against the older half.
func SummarizeNews(items []NewsItem) SentimentSummary {
	n := len(items)
	if n == 0 {
		return SentimentSummary{}
	}
	sorted := make([]NewsItem, n)
	copy(sorted, items)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j].PublishedAt.Before(sorted[j-1].PublishedAt); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	sum := 0.0
	for _, it := range sorted {
		sum += it.SentimentScore
	}
	half := n / 2
	older, recent := 0.0, 0.0
	for i, it := range sorted {
		if i < half {
			older += it.SentimentScore
		} else {
			recent += it.SentimentScore
		}
	}
	out := SentimentSummary{Overall: sum / float64(n), Volume: n}
	if half > 0 {
		out.Momentum = recent/float64(n-half) - older/float64(half)
	}
	return out
}
