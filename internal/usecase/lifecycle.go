package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	applogger "QuantSig/pkg/logger"
)

// LifecycleUseCase owns the signal state machine after emission: cooldown
// suppression, target/stop monitoring, expiry sweeps and aggregate stats.
type LifecycleUseCase struct {
	signals domrepo.SignalStore
	bars    domrepo.BarStore
	l       *applogger.Logger
}

func NewLifecycleUseCase(signals domrepo.SignalStore, bars domrepo.BarStore, l *applogger.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{signals: signals, bars: bars, l: l}
}

// InCooldown reports whether a recent generated signal for (symbol, timeframe)
// still suppresses regeneration.
func (uc *LifecycleUseCase) InCooldown(ctx context.Context, symbol string, tf domrepo.Timeframe) (bool, error) {
	last, err := uc.signals.FindRecent(ctx, symbol, tf)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	return last.IsFresh(time.Now().UTC(), domrepo.SignalCooldown(tf)), nil
}

// Record persists a freshly generated signal.
func (uc *LifecycleUseCase) Record(ctx context.Context, s *models.Signal) error {
	return uc.signals.Save(ctx, s)
}

func (uc *LifecycleUseCase) ListActive(ctx context.Context, symbol string, limit int) ([]models.Signal, error) {
	return uc.signals.ListActive(ctx, symbol, limit)
}

func (uc *LifecycleUseCase) Stats(ctx context.Context, symbol string) (*models.SignalStats, error) {
	return uc.signals.Stats(ctx, symbol)
}

// ExpireStale transitions generated signals past their expiry to expired.
// Returns the number of signals expired.
func (uc *LifecycleUseCase) ExpireStale(ctx context.Context) (int, error) {
	stale, err := uc.signals.ListExpirable(ctx, time.Now().UTC(), 500)
	if err != nil {
		return 0, fmt.Errorf("list expirable: %w", err)
	}
	expired := 0
	for i := range stale {
		s := stale[i]
		if err := s.Transition(models.SignalExpired); err != nil {
			continue
		}
		if err := uc.signals.UpdateStatus(ctx, &s); err != nil {
			uc.l.Warn("expire signal", applogger.String("signal_id", s.ID), applogger.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		uc.l.Info("expired stale signals", applogger.Int("count", expired))
	}
	return expired, nil
}

// MonitorActive re-checks every active signal against the latest close:
// target touched first marks executed, stop touched marks cancelled, and
// anything past its expiry is expired. Per-signal failures never abort the
// sweep. Returns the number of signals resolved.
func (uc *LifecycleUseCase) MonitorActive(ctx context.Context, symbol string) (int, error) {
	active, err := uc.signals.ListActive(ctx, symbol, 500)
	if err != nil {
		return 0, fmt.Errorf("list active: %w", err)
	}

	now := time.Now().UTC()
	resolved := 0
	lastClose := map[string]float64{}
	for i := range active {
		s := active[i]
		to, ok := uc.resolve(ctx, &s, now, lastClose)
		if !ok {
			continue
		}
		if err := s.Transition(to); err != nil {
			continue
		}
		if err := uc.signals.UpdateStatus(ctx, &s); err != nil {
			uc.l.Warn("update signal status",
				applogger.String("signal_id", s.ID),
				applogger.String("status", string(to)),
				applogger.Error(err))
			continue
		}
		resolved++
		uc.l.Info("signal resolved",
			applogger.String("signal_id", s.ID),
			applogger.String("symbol", s.Symbol),
			applogger.String("status", string(to)))
	}
	return resolved, nil
}

func (uc *LifecycleUseCase) resolve(ctx context.Context, s *models.Signal, now time.Time, closes map[string]float64) (models.SignalStatus, bool) {
	if now.After(s.ExpiresAt) {
		return models.SignalExpired, true
	}

	key := s.Symbol + "/" + s.Timeframe
	price, ok := closes[key]
	if !ok {
		bars, err := uc.bars.GetLatestNBars(ctx, s.Symbol, 1, domrepo.Timeframe(s.Timeframe))
		if err != nil || len(bars) == 0 {
			return "", false
		}
		price = bars[len(bars)-1].Close
		closes[key] = price
	}

	long := s.Direction == models.DirectionBuy || s.Direction == models.DirectionStrongBuy
	switch {
	case long && price >= s.TargetPrice:
		return models.SignalExecuted, true
	case long && price <= s.StopPrice:
		return models.SignalCancelled, true
	case !long && price <= s.TargetPrice:
		return models.SignalExecuted, true
	case !long && price >= s.StopPrice:
		return models.SignalCancelled, true
	}
	return "", false
}
