package repository

import "time"

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m, TF1h, TF4h, TF1d, TF1w:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe maps empty or unsupported values to the default.
func NormalizeTimeframe(tf Timeframe) Timeframe {
	if tf == "" {
		return DefaultTimeframe()
	}
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// BarDuration returns the wall-clock length of one bar.
func BarDuration(tf Timeframe) time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	case TF1w:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// SignalExpiry returns how long a generated signal for tf stays valid.
func SignalExpiry(tf Timeframe) time.Duration {
	switch tf {
	case TF1m, TF5m:
		return 30 * time.Minute
	case TF15m:
		return 2 * time.Hour
	case TF1h:
		return 6 * time.Hour
	case TF4h:
		return 24 * time.Hour
	case TF1d:
		return 3 * 24 * time.Hour
	case TF1w:
		return 5 * 24 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// SignalCooldown returns the minimum age a fresh generated signal must reach
// before another one may be emitted for the same symbol+timeframe.
func SignalCooldown(tf Timeframe) time.Duration {
	switch tf {
	case TF1m:
		return 2 * time.Minute
	case TF5m:
		return 10 * time.Minute
	case TF15m:
		return 30 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 12 * time.Hour
	case TF1w:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
