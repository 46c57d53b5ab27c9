package strategy

import (
	"math"
	"strings"

	"QuantSig/internal/domain/models"
)

// DefaultWeights is the fixed ensemble weighting per strategy name.
var DefaultWeights = map[string]float64{
	"technical":      0.25,
	"predictive":     0.35,
	"sentiment":      0.15,
	"momentum":       0.15,
	"mean_reversion": 0.10,
}

// strongThreshold promotes a winning buy/sell score to strong buy/sell.
const strongThreshold = 0.3

// DefaultMinConfidence gates candidate emission.
const DefaultMinConfidence = 0.65

// Consensus is the combined ensemble output before lifecycle handling.
type Consensus struct {
	Direction         models.Direction
	Confidence        float64
	EntryPrice        float64
	TargetPrice       float64
	StopPrice         float64
	RiskRewardRatio   float64
	ExpectedReturnPct float64
	Rationale         string
	Scores            map[models.Direction]float64
	Contributors      int
}

// Ensemble merges strategy predictions into one directional call via
// confidence-weighted voting.
type Ensemble struct {
	weights       map[string]float64
	minConfidence float64
}

func NewEnsemble(weights map[string]float64, minConfidence float64) *Ensemble {
	if weights == nil {
		weights = DefaultWeights
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Ensemble{weights: weights, minConfidence: minConfidence}
}

// Combine buckets each prediction's weight x confidence into buy/sell/hold
// totals. The winning bucket must strictly exceed the other two; ties resolve
// to hold. Returns nil when no predictions were supplied.
func (e *Ensemble) Combine(preds []*models.StrategyPrediction) *Consensus {
	if len(preds) == 0 {
		return nil
	}

	scores := map[models.Direction]float64{
		models.DirectionBuy:  0,
		models.DirectionSell: 0,
		models.DirectionHold: 0,
	}
	var entrySum, entryN float64
	var targetSum, stopSum, levelN float64
	var confWeighted, weightSum float64
	var why []string

	for _, p := range preds {
		if p == nil {
			continue
		}
		w, ok := e.weights[p.Strategy]
		if !ok {
			continue
		}
		dir := normalizeDirection(p.Direction)
		scores[dir] += w * p.Confidence
		entrySum += p.EntryPrice
		entryN++
		if p.HasLevels() {
			targetSum += p.TargetPrice
			stopSum += p.StopPrice
			levelN++
		}
		if p.Rationale != "" {
			why = append(why, p.Strategy+": "+p.Rationale)
		}
		if dir != models.DirectionHold {
			confWeighted += w * p.Confidence
			weightSum += w
		}
	}
	if entryN == 0 {
		return nil
	}

	winner := models.DirectionHold
	switch {
	case scores[models.DirectionBuy] > scores[models.DirectionSell] && scores[models.DirectionBuy] > scores[models.DirectionHold]:
		winner = models.DirectionBuy
	case scores[models.DirectionSell] > scores[models.DirectionBuy] && scores[models.DirectionSell] > scores[models.DirectionHold]:
		winner = models.DirectionSell
	}

	c := &Consensus{
		Direction:    winner,
		EntryPrice:   entrySum / entryN,
		Rationale:    strings.Join(why, " || "),
		Scores:       scores,
		Contributors: int(entryN),
	}
	if winner == models.DirectionHold {
		return c
	}

	if weightSum > 0 {
		c.Confidence = confWeighted / weightSum
	}
	if scores[winner] > strongThreshold {
		if winner == models.DirectionBuy {
			c.Direction = models.DirectionStrongBuy
		} else {
			c.Direction = models.DirectionStrongSell
		}
	}
	if levelN > 0 {
		c.TargetPrice = targetSum / levelN
		c.StopPrice = stopSum / levelN
		if c.EntryPrice > 0 {
			c.ExpectedReturnPct = (c.TargetPrice - c.EntryPrice) / c.EntryPrice * 100
		}
		if d := math.Abs(c.EntryPrice - c.StopPrice); d > 0 {
			c.RiskRewardRatio = math.Abs(c.TargetPrice-c.EntryPrice) / d
		}
	}
	return c
}

// Pass applies the emission gate: minimum confidence, a non-hold direction,
// both levels present, and at least 1% expected move.
func (e *Ensemble) Pass(c *Consensus) bool {
	if c == nil {
		return false
	}
	if c.Direction == models.DirectionHold {
		return false
	}
	if c.Confidence < e.minConfidence {
		return false
	}
	if c.TargetPrice <= 0 || c.StopPrice <= 0 {
		return false
	}
	return math.Abs(c.ExpectedReturnPct) >= 1.0
}

// MinConfidence exposes the configured gate threshold.
func (e *Ensemble) MinConfidence() float64 { return e.minConfidence }

func normalizeDirection(d models.Direction) models.Direction {
	switch d {
	case models.DirectionBuy, models.DirectionStrongBuy:
		return models.DirectionBuy
	case models.DirectionSell, models.DirectionStrongSell:
		return models.DirectionSell
	default:
		return models.DirectionHold
	}
}
