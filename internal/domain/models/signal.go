package models

import (
	"fmt"
	"time"
)

// SignalStatus is the lifecycle state of a persisted signal.
type SignalStatus string

const (
	SignalGenerated SignalStatus = "generated"
	SignalExecuted  SignalStatus = "executed"
	SignalCancelled SignalStatus = "cancelled"
	SignalExpired   SignalStatus = "expired"
)

// Signal is the persisted decision unit produced by the ensemble. Signals
// are never deleted; they only transition generated -> executed, cancelled,
// or expired.
type Signal struct {
	ID                string
	Symbol            string
	Timeframe         string
	Direction         Direction
	Confidence        float64
	EntryPrice        float64
	TargetPrice       float64
	StopPrice         float64
	RiskRewardRatio   float64
	ExpectedReturnPct float64
	Rationale         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	Status            SignalStatus
	// QuickWinRate/QuickTrades embed the 7-day validation backtest summary.
	QuickWinRate float64
	QuickTrades  int
}

// Transition applies a lifecycle transition, rejecting anything but the
// defined generated -> executed|cancelled|expired edges.
func (s *Signal) Transition(to SignalStatus) error {
	if s.Status != SignalGenerated {
		return fmt.Errorf("signal %s: cannot transition from %s to %s", s.ID, s.Status, to)
	}
	switch to {
	case SignalExecuted, SignalCancelled, SignalExpired:
		s.Status = to
		return nil
	default:
		return fmt.Errorf("signal %s: invalid target status %s", s.ID, to)
	}
}

// IsFresh reports whether the signal is still in generated state and younger
// than the given age at time now.
func (s *Signal) IsFresh(now time.Time, maxAge time.Duration) bool {
	return s.Status == SignalGenerated && now.Sub(s.CreatedAt) < maxAge
}

// SignalStats aggregates closed signals for performance reporting.
type SignalStats struct {
	Symbol    string
	Total     int
	Generated int
	Executed  int
	Cancelled int
	Expired   int
	AvgConf   float64
}
