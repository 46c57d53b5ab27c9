package usecase

import (
	"context"
	"testing"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
)

func activeSignal(dir models.Direction, target, stop float64) models.Signal {
	now := time.Now().UTC()
	return models.Signal{
		ID:          "sig-1",
		Symbol:      "AAPL",
		Timeframe:   "1h",
		Direction:   dir,
		TargetPrice: target,
		StopPrice:   stop,
		CreatedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(time.Hour),
		Status:      models.SignalGenerated,
	}
}

func latestCloseStore(price float64) *stubBarStore {
	return &stubBarStore{bars: []models.Bar{{
		Bucket: time.Now().UTC().Truncate(time.Hour),
		Symbol: "AAPL",
		Open:   price, High: price, Low: price, Close: price,
	}}}
}

func TestInCooldownFresh(t *testing.T) {
	signals := &stubSignalStore{recent: &models.Signal{
		Status:    models.SignalGenerated,
		CreatedAt: time.Now().UTC().Add(-5 * time.Minute),
	}}
	uc := NewLifecycleUseCase(signals, &stubBarStore{}, testLogger(t))
	in, err := uc.InCooldown(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil || !in {
		t.Fatalf("5-minute-old 1h signal should suppress: %v, %v", in, err)
	}
}

func TestInCooldownAged(t *testing.T) {
	signals := &stubSignalStore{recent: &models.Signal{
		Status:    models.SignalGenerated,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}}
	uc := NewLifecycleUseCase(signals, &stubBarStore{}, testLogger(t))
	in, err := uc.InCooldown(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil || in {
		t.Fatalf("aged signal should not suppress: %v, %v", in, err)
	}
}

func TestInCooldownNone(t *testing.T) {
	uc := NewLifecycleUseCase(&stubSignalStore{}, &stubBarStore{}, testLogger(t))
	in, err := uc.InCooldown(context.Background(), "AAPL", domrepo.TF1h)
	if err != nil || in {
		t.Fatalf("no prior signal should not suppress: %v, %v", in, err)
	}
}

func TestExpireStale(t *testing.T) {
	signals := &stubSignalStore{expirable: []models.Signal{
		activeSignal(models.DirectionBuy, 105, 95),
		activeSignal(models.DirectionSell, 95, 105),
	}}
	uc := NewLifecycleUseCase(signals, &stubBarStore{}, testLogger(t))
	n, err := uc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 2 || len(signals.updated) != 2 {
		t.Fatalf("expired %d, updated %d", n, len(signals.updated))
	}
	for _, s := range signals.updated {
		if s.Status != models.SignalExpired {
			t.Fatalf("status = %s", s.Status)
		}
	}
}

func TestMonitorActiveTargetHit(t *testing.T) {
	signals := &stubSignalStore{active: []models.Signal{activeSignal(models.DirectionBuy, 105, 95)}}
	uc := NewLifecycleUseCase(signals, latestCloseStore(106), testLogger(t))
	n, err := uc.MonitorActive(context.Background(), "")
	if err != nil || n != 1 {
		t.Fatalf("resolved %d, %v", n, err)
	}
	if signals.updated[0].Status != models.SignalExecuted {
		t.Fatalf("target hit should execute, got %s", signals.updated[0].Status)
	}
}

func TestMonitorActiveStopHit(t *testing.T) {
	signals := &stubSignalStore{active: []models.Signal{activeSignal(models.DirectionBuy, 105, 95)}}
	uc := NewLifecycleUseCase(signals, latestCloseStore(94), testLogger(t))
	n, err := uc.MonitorActive(context.Background(), "")
	if err != nil || n != 1 {
		t.Fatalf("resolved %d, %v", n, err)
	}
	if signals.updated[0].Status != models.SignalCancelled {
		t.Fatalf("stop hit should cancel, got %s", signals.updated[0].Status)
	}
}

func TestMonitorActiveShortTargetHit(t *testing.T) {
	signals := &stubSignalStore{active: []models.Signal{activeSignal(models.DirectionSell, 95, 105)}}
	uc := NewLifecycleUseCase(signals, latestCloseStore(94), testLogger(t))
	n, err := uc.MonitorActive(context.Background(), "")
	if err != nil || n != 1 {
		t.Fatalf("resolved %d, %v", n, err)
	}
	if signals.updated[0].Status != models.SignalExecuted {
		t.Fatalf("short target hit should execute, got %s", signals.updated[0].Status)
	}
}

func TestMonitorActiveUntouched(t *testing.T) {
	signals := &stubSignalStore{active: []models.Signal{activeSignal(models.DirectionBuy, 105, 95)}}
	uc := NewLifecycleUseCase(signals, latestCloseStore(100), testLogger(t))
	n, err := uc.MonitorActive(context.Background(), "")
	if err != nil || n != 0 {
		t.Fatalf("price inside the band should leave the signal open: %d, %v", n, err)
	}
}

func TestMonitorActiveExpired(t *testing.T) {
	s := activeSignal(models.DirectionBuy, 105, 95)
	s.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	signals := &stubSignalStore{active: []models.Signal{s}}
	uc := NewLifecycleUseCase(signals, latestCloseStore(100), testLogger(t))
	n, err := uc.MonitorActive(context.Background(), "")
	if err != nil || n != 1 {
		t.Fatalf("resolved %d, %v", n, err)
	}
	if signals.updated[0].Status != models.SignalExpired {
		t.Fatalf("past expiry should expire, got %s", signals.updated[0].Status)
	}
}
