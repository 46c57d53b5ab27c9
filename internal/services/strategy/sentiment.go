package strategy

import (
	"context"
	"fmt"
	"math"

	"QuantSig/internal/domain/models"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/services/features"
)

// Sentiment aggregates the news window into overall score, volume, and
// momentum. Confidence is capped at 0.8 so price-action strategies carry
// more weight in the ensemble. Sentiment proposes no target/stop levels.
type Sentiment struct{}

func NewSentiment() *Sentiment { return &Sentiment{} }

func (s *Sentiment) Name() string { return "sentiment" }

const (
	minOverall    = 0.2
	minNewsVolume = 3
)

func (s *Sentiment) Evaluate(_ context.Context, snap *models.MarketSnapshot) (*models.StrategyPrediction, error) {
	price, ok := snap.LastClose()
	if !ok || price <= 0 {
		return nil, nil
	}
	sum := models.SummarizeNews(snap.News)
	if math.Abs(sum.Overall) <= minOverall || sum.Volume <= minNewsVolume {
		return nil, nil
	}

	dir := models.DirectionBuy
	if sum.Overall < 0 {
		dir = models.DirectionSell
	}
	conf := 0.4 + math.Abs(sum.Overall)*0.4
	if sum.Momentum*sum.Overall > 0 {
		// news flow accelerating in the same direction
		conf += 0.1
	}
	conf = features.Clamp(conf, 0, 0.8)

	return &models.StrategyPrediction{
		Strategy:          s.Name(),
		Direction:         dir,
		Confidence:        conf,
		EntryPrice:        price,
		ExpectedReturnPct: sum.Overall * 2,
		Rationale:         fmt.Sprintf("news sentiment %.2f over %d items", sum.Overall, sum.Volume),
		RawFeatures: map[string]float64{
			"overall":  sum.Overall,
			"volume":   float64(sum.Volume),
			"momentum": sum.Momentum,
		},
	}, nil
}

var _ domsvc.Evaluator = (*Sentiment)(nil)
