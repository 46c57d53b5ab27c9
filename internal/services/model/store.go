package model

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	domsvc "QuantSig/internal/domain/service"
	applogger "QuantSig/pkg/logger"
)

// Store owns one fitted model + scaler per symbol. The store map is guarded
// by a read-write lock; each symbol entry carries its own mutex so training
// one symbol never blocks predictions for another.
type Store struct {
	bars        domrepo.BarStore
	l           *applogger.Logger
	historyDays int
	tf          domrepo.Timeframe

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu          sync.Mutex
	model       *LinearPredictor
	scaler      *Scaler
	lastTrained time.Time
	validation  domsvc.ValidationMetrics
}

type StoreConfig struct {
	HistoryDays int
	Timeframe   domrepo.Timeframe
}

func NewStore(bars domrepo.BarStore, l *applogger.Logger, cfg StoreConfig) *Store {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 365
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = domrepo.TF1d
	}
	return &Store{
		bars:        bars,
		l:           l,
		historyDays: cfg.HistoryDays,
		tf:          cfg.Timeframe,
		entries:     make(map[string]*entry),
	}
}

func (s *Store) entryFor(symbol string) *entry {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[symbol]; ok {
		return e
	}
	e = &entry{}
	s.entries[symbol] = e
	return e
}

// Predict answers a point prediction for symbol, lazily training the model
// on first request for a previously-unseen symbol.
func (s *Store) Predict(ctx context.Context, symbol string, features models.FeatureVector) (float64, error) {
	e := s.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		if err := s.trainLocked(ctx, symbol, e); err != nil {
			return 0, fmt.Errorf("%w: %s: lazy training failed: %v", models.ErrModelUnavailable, symbol, err)
		}
	}
	return e.model.Score(e.scaler.Transform(features.Slice())), nil
}

// Retrain refits the model for symbol from the historical window.
func (s *Store) Retrain(ctx context.Context, symbol string) (*domsvc.ValidationMetrics, error) {
	e := s.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.trainLocked(ctx, symbol, e); err != nil {
		return nil, err
	}
	v := e.validation
	return &v, nil
}

func (s *Store) trainLocked(ctx context.Context, symbol string, e *entry) error {
	from := time.Now().AddDate(0, 0, -s.historyDays)
	bars, err := s.bars.GetBars(ctx, symbol, from, time.Now(), s.tf)
	if err != nil {
		return fmt.Errorf("training bars: %w", err)
	}
	ts, err := BuildTrainingSet(symbol, bars)
	if err != nil {
		return err
	}
	scaler := FitScaler(ts.Samples)
	scaled := make([][]float64, len(ts.Samples))
	for i, sm := range ts.Samples {
		scaled[i] = scaler.Transform(sm)
	}
	m, validation := Fit(scaled, ts.Labels)

	e.model = m
	e.scaler = scaler
	e.lastTrained = time.Now()
	e.validation = validation

	if s.l != nil {
		s.l.Info("model trained",
			applogger.String("symbol", symbol),
			applogger.Int("samples", validation.Samples),
			applogger.Any("r2", validation.R2),
			applogger.Any("mae", validation.MAE),
		)
	}
	return nil
}

// Info reports the fitted-model state for one symbol.
func (s *Store) Info(symbol string) domsvc.ModelInfo {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	info := domsvc.ModelInfo{Symbol: symbol}
	if !ok {
		return info
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	info.HasModel = e.model != nil
	info.LastTrainedAt = e.lastTrained
	info.Validation = e.validation
	return info
}

// Symbols lists every symbol the store has seen, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for sym := range s.entries {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

var _ domsvc.ModelStore = (*Store)(nil)
