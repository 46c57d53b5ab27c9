package repository

import (
	"context"
	"encoding/json"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	icache "QuantSig/internal/service/cache"
)

// CachedSignalStore fronts a SignalStore with a bytes cache on the cooldown
// path: FindRecent is hit on every scheduler tick per symbol+timeframe, so a
// short-TTL cache keeps the hot loop off ClickHouse. Writes pass through and
// refresh the cached entry.
type CachedSignalStore struct {
	inner domrepo.SignalStore
	cache icache.BytesCache
	ttl   time.Duration
}

func NewCachedSignalStore(inner domrepo.SignalStore, cache icache.BytesCache, ttl time.Duration) *CachedSignalStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedSignalStore{inner: inner, cache: cache, ttl: ttl}
}

func recentKey(symbol string, tf domrepo.Timeframe) string {
	return "signal:recent:" + symbol + ":" + string(tf)
}

func (c *CachedSignalStore) Save(ctx context.Context, s *models.Signal) error {
	if err := c.inner.Save(ctx, s); err != nil {
		return err
	}
	c.put(s)
	return nil
}

func (c *CachedSignalStore) UpdateStatus(ctx context.Context, s *models.Signal) error {
	if err := c.inner.UpdateStatus(ctx, s); err != nil {
		return err
	}
	c.put(s)
	return nil
}

func (c *CachedSignalStore) FindRecent(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.Signal, error) {
	if c.cache != nil {
		if b, ok, err := c.cache.GetBytes(recentKey(symbol, tf)); err == nil && ok {
			var s models.Signal
			if json.Unmarshal(b, &s) == nil {
				return &s, nil
			}
		}
	}
	s, err := c.inner.FindRecent(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if s != nil {
		c.put(s)
	}
	return s, nil
}

func (c *CachedSignalStore) put(s *models.Signal) {
	if c.cache == nil {
		return
	}
	if b, err := json.Marshal(s); err == nil {
		_ = c.cache.SetBytes(recentKey(s.Symbol, domrepo.Timeframe(s.Timeframe)), b, c.ttl)
	}
}

func (c *CachedSignalStore) ListActive(ctx context.Context, symbol string, limit int) ([]models.Signal, error) {
	return c.inner.ListActive(ctx, symbol, limit)
}

func (c *CachedSignalStore) ListExpirable(ctx context.Context, asOf time.Time, limit int) ([]models.Signal, error) {
	return c.inner.ListExpirable(ctx, asOf, limit)
}

func (c *CachedSignalStore) Stats(ctx context.Context, symbol string) (*models.SignalStats, error) {
	return c.inner.Stats(ctx, symbol)
}

var _ domrepo.SignalStore = (*CachedSignalStore)(nil)
