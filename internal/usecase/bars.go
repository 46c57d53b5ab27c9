package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
)

// BarsUseCase provides business logic for retrieving aggregated bars.
type BarsUseCase struct {
	store domrepo.BarStore
}

func NewBarsUseCase(store domrepo.BarStore) *BarsUseCase {
	return &BarsUseCase{store: store}
}

type GetBarsParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetBarsResult struct {
	Symbol    string
	Timeframe string
	From      time.Time
	To        time.Time
	Count     int
	Bars      []models.Bar
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}
	p.Timeframe = domrepo.NormalizeTimeframe(p.Timeframe)

	bars, err := uc.store.GetBars(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) > p.Limit {
		bars = bars[:p.Limit]
	}

	return &GetBarsResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		From:      p.From,
		To:        p.To,
		Count:     len(bars),
		Bars:      bars,
	}, nil
}

// GetLatestBars returns the most recent n bars in ascending order.
func (uc *BarsUseCase) GetLatestBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) (*GetBarsResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if n <= 0 {
		n = 600
	}
	tf = domrepo.NormalizeTimeframe(tf)

	bars, err := uc.store.GetLatestNBars(ctx, symbol, n, tf)
	if err != nil {
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	res := &GetBarsResult{
		Symbol:    symbol,
		Timeframe: string(tf),
		Count:     len(bars),
		Bars:      bars,
	}
	if len(bars) > 0 {
		res.From = bars[0].Bucket
		res.To = bars[len(bars)-1].Bucket
	}
	return res, nil
}
