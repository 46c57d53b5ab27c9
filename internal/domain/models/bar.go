package models

import (
	"fmt"
	"time"
)

// Bar represents one OHLCV observation for a symbol at a timeframe.
// Bars are immutable once stored and ordered bucket-ascending within a
// symbol+timeframe series.
type Bar struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate checks the OHLC invariant: high >= max(open,close) and
// low <= min(open,close).
func (b Bar) Validate() error {
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	if b.High < hi || b.Low > lo {
		return fmt.Errorf("%w: bar %s@%s open=%f high=%f low=%f close=%f",
			ErrInvalidBarSequence, b.Symbol, b.Bucket.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}
	return nil
}

// ValidateBarSeries verifies strict timestamp-ascending order and the OHLC
// invariant for every bar. It never reorders the input.
func ValidateBarSeries(bars []Bar) error {
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return err
		}
		if i > 0 && !bars[i].Bucket.After(bars[i-1].Bucket) {
			return fmt.Errorf("%w: bar %d (%s) not after bar %d (%s)",
				ErrInvalidBarSequence, i, bars[i].Bucket.Format(time.RFC3339), i-1, bars[i-1].Bucket.Format(time.RFC3339))
		}
	}
	return nil
}
