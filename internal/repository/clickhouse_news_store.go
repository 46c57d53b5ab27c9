package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	pkgch "QuantSig/pkg/clickhouse"
	applogger "QuantSig/pkg/logger"
)

const newsTable = "quantsig.news_sentiment"

// CHNewsStore persists scored news items so sentiment survives upstream
// outages.
type CHNewsStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHNewsStore(ch *pkgch.Client, l *applogger.Logger) *CHNewsStore {
	return &CHNewsStore{db: ch.DB(), l: l}
}

func (s *CHNewsStore) SaveBatch(ctx context.Context, items []models.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin news batch: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s
        (symbol, headline, sentiment, source, published_at) VALUES (?, ?, ?, ?, ?)`, newsTable)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare news batch: %w", err)
	}
	defer stmt.Close()
	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.Symbol, it.Headline, it.SentimentScore, it.Source, it.PublishedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert news item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit news batch: %w", err)
	}
	return nil
}

func (s *CHNewsStore) GetLatestNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, headline, sentiment, source, published_at
        FROM %s
        WHERE symbol = ?
        ORDER BY published_at DESC
        LIMIT ?
    `, newsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query news: %w", err)
	}
	defer rows.Close()

	var items []models.NewsItem
	for rows.Next() {
		var it models.NewsItem
		if err := rows.Scan(&it.Symbol, &it.Headline, &it.SentimentScore, &it.Source, &it.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan news item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news: %w", err)
	}
	s.l.Debug("clickhouse news query",
		applogger.String("symbol", symbol),
		applogger.Int("items", len(items)),
		applogger.Duration("took", time.Since(start)),
	)
	return items, nil
}

// StoredNewsProvider fronts a live news source with the ClickHouse store:
// fetched items are written through, and the store serves reads when the
// source is down.
type StoredNewsProvider struct {
	source domrepo.NewsProvider
	store  *CHNewsStore
	l      *applogger.Logger
}

func NewStoredNewsProvider(source domrepo.NewsProvider, store *CHNewsStore, l *applogger.Logger) *StoredNewsProvider {
	return &StoredNewsProvider{source: source, store: store, l: l}
}

func (p *StoredNewsProvider) GetLatestNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	items, err := p.source.GetLatestNews(ctx, symbol, limit)
	if err != nil {
		p.l.Warn("news source unavailable, serving stored items",
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return p.store.GetLatestNews(ctx, symbol, limit)
	}
	if err := p.store.SaveBatch(ctx, items); err != nil {
		p.l.Warn("persist news batch", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return items, nil
}

var _ domrepo.NewsProvider = (*CHNewsStore)(nil)
var _ domrepo.NewsProvider = (*StoredNewsProvider)(nil)
