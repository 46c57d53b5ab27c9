package model

import (
	"errors"
	"fmt"

	"QuantSig/internal/domain/models"
	"QuantSig/internal/services/features"
)

// Training windows: a 30-bar trailing feature window predicts the 5-bar
// forward return.
const (
	FeatureWindow  = 30
	ForwardHorizon = 5
	MinSamples     = 50
)

// Forward-return class thresholds backing the ClassAccuracy validation
// metric; the fitted model predicts the continuous forward return.
const (
	BuyClassThreshold  = 0.02
	SellClassThreshold = -0.02
)

// TrainingSet is the sample matrix plus labels for one symbol.
type TrainingSet struct {
	Samples [][]float64
	Labels  []float64
}

// BuildTrainingSet slides the feature window over the historical bars and
// labels each sample with its 5-bar forward return. Windows that cannot
// produce a feature vector are skipped, not padded.
func BuildTrainingSet(symbol string, bars []models.Bar) (*TrainingSet, error) {
	if err := models.ValidateBarSeries(bars); err != nil {
		return nil, err
	}
	need := FeatureWindow + ForwardHorizon
	if len(bars) < need+MinSamples {
		return nil, fmt.Errorf("%w: need %d bars for %d samples, got %d",
			models.ErrInsufficientData, need+MinSamples, MinSamples, len(bars))
	}

	ts := &TrainingSet{}
	for end := FeatureWindow; end+ForwardHorizon <= len(bars); end++ {
		window := bars[end-FeatureWindow : end]
		snap := &models.MarketSnapshot{
			Symbol:     symbol,
			Bars:       window,
			Indicators: features.ComputeIndicatorSet(window),
		}
		fv, err := features.Extract(snap)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		entry := bars[end-1].Close
		exit := bars[end+ForwardHorizon-1].Close
		if entry <= 0 {
			continue
		}
		ts.Samples = append(ts.Samples, fv.Slice())
		ts.Labels = append(ts.Labels, exit/entry-1)
	}
	if len(ts.Samples) < MinSamples {
		return nil, fmt.Errorf("%w: built %d samples, need %d", models.ErrInsufficientData, len(ts.Samples), MinSamples)
	}
	return ts, nil
}
