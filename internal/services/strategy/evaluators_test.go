package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
)

func snapBars(closes []float64) []models.Bar {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Bucket: base.Add(time.Duration(i) * time.Hour),
			Symbol: "AAPL",
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestTechnicalOversoldBuy(t *testing.T) {
	snap := &models.MarketSnapshot{
		Symbol: "AAPL",
		Bars:   snapBars([]float64{100}),
		Indicators: models.IndicatorSet{
			RSI:    25,
			HasRSI: true,
			MACD:   &models.MACD{Histogram: 0.5},
		},
	}
	p, err := NewTechnical().Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionBuy {
		t.Fatalf("expected buy, got %+v", p)
	}
	if !p.HasLevels() {
		t.Fatalf("technical must propose both levels")
	}
	if p.Confidence <= 0 || p.Confidence > 0.95 {
		t.Fatalf("confidence out of range: %f", p.Confidence)
	}
}

func TestTechnicalNeutralAbstains(t *testing.T) {
	snap := &models.MarketSnapshot{
		Symbol:     "AAPL",
		Bars:       snapBars([]float64{100}),
		Indicators: models.IndicatorSet{RSI: 50, HasRSI: true},
	}
	p, err := NewTechnical().Evaluate(context.Background(), snap)
	if err != nil || p != nil {
		t.Fatalf("neutral indicators should abstain, got %+v, %v", p, err)
	}
}

func TestSentimentFiresOnStrongNews(t *testing.T) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	news := make([]models.NewsItem, 4)
	for i := range news {
		news[i] = models.NewsItem{SentimentScore: 0.5, PublishedAt: base.Add(time.Duration(i) * time.Hour)}
	}
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: snapBars([]float64{100}), News: news}
	p, err := NewSentiment().Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionBuy {
		t.Fatalf("expected buy, got %+v", p)
	}
	if p.Confidence > 0.8 {
		t.Fatalf("sentiment confidence must cap at 0.8, got %f", p.Confidence)
	}
	if p.HasLevels() {
		t.Fatalf("sentiment proposes no levels")
	}
}

func TestSentimentAbstainsOnThinNews(t *testing.T) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	news := []models.NewsItem{
		{SentimentScore: 0.9, PublishedAt: base},
		{SentimentScore: 0.9, PublishedAt: base.Add(time.Hour)},
		{SentimentScore: 0.9, PublishedAt: base.Add(2 * time.Hour)},
	}
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: snapBars([]float64{100}), News: news}
	if p, _ := NewSentiment().Evaluate(context.Background(), snap); p != nil {
		t.Fatalf("fewer than 4 items should abstain, got %+v", p)
	}
}

func momentumBars() []models.Bar {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 100
	}
	closes[16], closes[17], closes[18], closes[19], closes[20] = 101, 102, 103, 104, 107
	bars := snapBars(closes)
	bars[20].Volume = 2000
	return bars
}

func TestMomentumBurstBuy(t *testing.T) {
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: momentumBars()}
	p, err := NewMomentum().Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionBuy {
		t.Fatalf("expected buy on momentum burst, got %+v", p)
	}
	if !p.HasLevels() {
		t.Fatalf("momentum must propose both levels")
	}
}

func TestMomentumNeedsVolumeSurge(t *testing.T) {
	bars := momentumBars()
	bars[20].Volume = 1000 // same as trailing average
	snap := &models.MarketSnapshot{Symbol: "AAPL", Bars: bars}
	if p, _ := NewMomentum().Evaluate(context.Background(), snap); p != nil {
		t.Fatalf("no volume surge should abstain, got %+v", p)
	}
}

func TestMeanReversionLowerBandBuy(t *testing.T) {
	snap := &models.MarketSnapshot{
		Symbol: "AAPL",
		Bars:   snapBars([]float64{91}),
		Indicators: models.IndicatorSet{
			RSI:       30,
			HasRSI:    true,
			Bollinger: &models.Bollinger{Upper: 110, Middle: 100, Lower: 90},
		},
	}
	p, err := NewMeanReversion().Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionBuy {
		t.Fatalf("expected buy at lower band, got %+v", p)
	}
	if p.TargetPrice != 100 {
		t.Fatalf("target should be the midline, got %f", p.TargetPrice)
	}
	if p.StopPrice >= 90 {
		t.Fatalf("stop should sit below the lower band, got %f", p.StopPrice)
	}
}

func TestMeanReversionMidBandAbstains(t *testing.T) {
	snap := &models.MarketSnapshot{
		Symbol: "AAPL",
		Bars:   snapBars([]float64{100}),
		Indicators: models.IndicatorSet{
			RSI:       30,
			HasRSI:    true,
			Bollinger: &models.Bollinger{Upper: 110, Middle: 100, Lower: 90},
		},
	}
	if p, _ := NewMeanReversion().Evaluate(context.Background(), snap); p != nil {
		t.Fatalf("mid-band price should abstain, got %+v", p)
	}
}

type stubPredictor struct {
	score float64
	err   error
}

func (s stubPredictor) Predict(context.Context, string, models.FeatureVector) (float64, error) {
	return s.score, s.err
}

func predictiveSnap() *models.MarketSnapshot {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.2
	}
	return &models.MarketSnapshot{Symbol: "AAPL", Bars: snapBars(closes)}
}

func TestPredictivePositiveScore(t *testing.T) {
	p, err := NewPredictive(stubPredictor{score: 0.6}).Evaluate(context.Background(), predictiveSnap())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionBuy {
		t.Fatalf("expected buy for score 0.6, got %+v", p)
	}
}

func TestPredictiveHoldRangeAbstains(t *testing.T) {
	p, err := NewPredictive(stubPredictor{score: 0.1}).Evaluate(context.Background(), predictiveSnap())
	if err != nil || p != nil {
		t.Fatalf("hold-range score should abstain, got %+v, %v", p, err)
	}
}

func TestPredictivePredictorError(t *testing.T) {
	wantErr := errors.New("store down")
	_, err := NewPredictive(stubPredictor{err: wantErr}).Evaluate(context.Background(), predictiveSnap())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped predictor error, got %v", err)
	}
}
