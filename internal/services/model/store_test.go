package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
)

type fakeBarStore struct {
	bars []models.Bar
	err  error
}

func (f *fakeBarStore) GetBars(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	return f.bars, f.err
}

func (f *fakeBarStore) GetLatestNBars(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.bars) > n {
		return f.bars[len(f.bars)-n:], nil
	}
	return f.bars, nil
}

func sampleFeatures() models.FeatureVector {
	return models.FeatureVector{PriceChange1: 0.01, Volatility20: 0.02, RSINorm: 0.2}
}

func TestStorePredictLazyTraining(t *testing.T) {
	store := NewStore(&fakeBarStore{bars: historyBars(200)}, nil, StoreConfig{})
	if store.Info("AAPL").HasModel {
		t.Fatalf("no model should exist before first predict")
	}
	score, err := store.Predict(context.Background(), "AAPL", sampleFeatures())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if score < -1 || score > 1 {
		t.Fatalf("score %f out of [-1,1]", score)
	}
	info := store.Info("AAPL")
	if !info.HasModel {
		t.Fatalf("lazy training should leave a fitted model")
	}
	if info.Validation.Samples < MinSamples {
		t.Fatalf("validation ran on %d samples", info.Validation.Samples)
	}
}

func TestStorePredictUnavailable(t *testing.T) {
	store := NewStore(&fakeBarStore{bars: historyBars(40)}, nil, StoreConfig{})
	_, err := store.Predict(context.Background(), "AAPL", sampleFeatures())
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestStorePredictBarsError(t *testing.T) {
	store := NewStore(&fakeBarStore{err: errors.New("clickhouse down")}, nil, StoreConfig{})
	_, err := store.Predict(context.Background(), "AAPL", sampleFeatures())
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestStoreRetrain(t *testing.T) {
	store := NewStore(&fakeBarStore{bars: historyBars(200)}, nil, StoreConfig{})
	v, err := store.Retrain(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if v.Samples < MinSamples {
		t.Fatalf("samples = %d", v.Samples)
	}
	info := store.Info("MSFT")
	if !info.HasModel || info.LastTrainedAt.IsZero() {
		t.Fatalf("retrain should record state: %+v", info)
	}
}

func TestStoreRetrainInsufficient(t *testing.T) {
	store := NewStore(&fakeBarStore{bars: historyBars(40)}, nil, StoreConfig{})
	if _, err := store.Retrain(context.Background(), "MSFT"); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestStoreSymbolsSorted(t *testing.T) {
	store := NewStore(&fakeBarStore{bars: historyBars(200)}, nil, StoreConfig{})
	for _, sym := range []string{"MSFT", "AAPL", "GOOG"} {
		if _, err := store.Retrain(context.Background(), sym); err != nil {
			t.Fatalf("retrain %s: %v", sym, err)
		}
	}
	syms := store.Symbols()
	if len(syms) != 3 || syms[0] != "AAPL" || syms[1] != "GOOG" || syms[2] != "MSFT" {
		t.Fatalf("symbols = %v", syms)
	}
}
