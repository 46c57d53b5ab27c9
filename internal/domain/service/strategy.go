package service

import (
	"context"
	"time"

	"QuantSig/internal/domain/models"
)

// Evaluator is one strategy in the closed ensemble set. Evaluate returns
// (nil, nil) when the strategy lacks sufficient signal to fire.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, snap *models.MarketSnapshot) (*models.StrategyPrediction, error)
}

// Predictor answers point predictions for a symbol from a feature vector.
// Output is a forward-return score in [-1,1]; treat it as opaque.
type Predictor interface {
	Predict(ctx context.Context, symbol string, features models.FeatureVector) (float64, error)
}

// ValidationMetrics is the advisory telemetry reported after each model fit.
type ValidationMetrics struct {
	R2      float64
	MAE     float64
	MSE     float64
	Samples int
	// ClassAccuracy is the share of samples where the predicted forward
	// return lands in the same buy/hold/sell class as the label.
	ClassAccuracy float64
}

// ModelInfo describes the fitted model state for one symbol.
type ModelInfo struct {
	Symbol        string
	HasModel      bool
	LastTrainedAt time.Time
	Validation    ValidationMetrics
}

// ModelStore owns the per-symbol fitted models and their training lifecycle.
type ModelStore interface {
	Predictor
	Retrain(ctx context.Context, symbol string) (*ValidationMetrics, error)
	Info(symbol string) ModelInfo
	Symbols() []string
}
