package repository

import (
	"context"
	"time"

	"QuantSig/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher pushes raw ticks to the message bus.
type Publisher interface {
	Publish(ctx context.Context, t *models.Trade) error
	PublishBatch(ctx context.Context, trades []*models.Trade) error
	Close() error
}

// Storage persists raw ticks; 1m bars are materialized from this stream.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, t *models.Trade) error
	StoreBatch(ctx context.Context, trades []*models.Trade) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Trade, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// SignalStore persists signals and answers lifecycle queries.
type SignalStore interface {
	Save(ctx context.Context, s *models.Signal) error
	UpdateStatus(ctx context.Context, s *models.Signal) error
	FindRecent(ctx context.Context, symbol string, tf Timeframe) (*models.Signal, error)
	ListActive(ctx context.Context, symbol string, limit int) ([]models.Signal, error)
	ListExpirable(ctx context.Context, asOf time.Time, limit int) ([]models.Signal, error)
	Stats(ctx context.Context, symbol string) (*models.SignalStats, error)
}

// BacktestStore persists backtest results.
type BacktestStore interface {
	Save(ctx context.Context, r *models.BacktestResult) error
}

// NewsProvider answers recent scored news for a symbol.
type NewsProvider interface {
	GetLatestNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// IndicatorProvider supplies the technical-indicator snapshot for a symbol.
type IndicatorProvider interface {
	GetIndicators(ctx context.Context, symbol string, asOf time.Time, tf Timeframe) (models.IndicatorSet, error)
}

// SignalPublisher emits generated signals for downstream consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, s *models.Signal) error
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
