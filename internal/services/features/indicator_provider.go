package features

import (
	"context"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	pkgcache "QuantSig/pkg/cache"
)

// indicatorWindow is the bar lookback used to compute the indicator set.
// 60 bars covers the 50-period SMA plus warm-up.
const indicatorWindow = 60

// LocalIndicatorProvider computes the indicator snapshot from the bar store.
// Computed sets are cached briefly per symbol+timeframe to keep the three
// scheduler cadences from recomputing the same window.
type LocalIndicatorProvider struct {
	bars  domrepo.BarStore
	cache pkgcache.Service
	ttl   time.Duration
}

func NewLocalIndicatorProvider(bars domrepo.BarStore, cache pkgcache.Service, ttl time.Duration) *LocalIndicatorProvider {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LocalIndicatorProvider{bars: bars, cache: cache, ttl: ttl}
}

func (p *LocalIndicatorProvider) GetIndicators(ctx context.Context, symbol string, asOf time.Time, tf domrepo.Timeframe) (models.IndicatorSet, error) {
	key := pkgcache.GenerateKeyWithParams("indicators", symbol, string(tf), asOf.Truncate(domrepo.BarDuration(tf)).Unix())
	if p.cache != nil {
		var v interface{}
		if err := p.cache.Get(ctx, key, &v); err == nil {
			if set, ok := v.(models.IndicatorSet); ok {
				return set, nil
			}
		}
	}

	bars, err := p.bars.GetLatestNBars(ctx, symbol, indicatorWindow, tf)
	if err != nil {
		return models.IndicatorSet{}, fmt.Errorf("indicator bars: %w", err)
	}
	set := ComputeIndicatorSet(bars)
	if p.cache != nil {
		_ = p.cache.Set(ctx, key, set, p.ttl)
	}
	return set, nil
}

// ComputeIndicatorSet derives the full indicator snapshot from a bar window.
func ComputeIndicatorSet(bars []models.Bar) models.IndicatorSet {
	closes := Closes(bars)
	set := models.IndicatorSet{SMA: make(map[int]float64)}
	if len(closes) >= 15 {
		set.RSI = RSI(closes, 14)
		set.HasRSI = true
	}
	if len(closes) >= 26 {
		m := ComputeMACD(closes)
		set.MACD = &m
	}
	if len(closes) >= 20 {
		b := ComputeBollinger(closes, 20, 2)
		set.Bollinger = &b
	}
	if atr := ATR(bars, 14); atr > 0 {
		set.ATR = atr
		set.HasATR = true
	}
	if len(bars) >= 17 {
		s := ComputeStochastic(bars, 14, 3)
		set.Stochastic = &s
	}
	for _, period := range []int{10, 20, 50} {
		if v, ok := SMA(closes, period); ok {
			set.SMA[period] = v
		}
	}
	return set
}

var _ domrepo.IndicatorProvider = (*LocalIndicatorProvider)(nil)
