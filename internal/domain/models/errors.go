package models

import "errors"

// Sentinel errors shared across the engine. Callers match them with errors.Is.
var (
	// ErrInsufficientData means fewer bars/samples than the stated minimum
	// were available. Recoverable by waiting for more history; never padded
	// with synthetic data.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelUnavailable means no fitted model exists for a symbol and lazy
	// training also failed.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrEvaluatorTimeout means a strategy evaluator exceeded its deadline.
	// Treated identically to "no prediction" from that evaluator.
	ErrEvaluatorTimeout = errors.New("evaluator timeout")

	// ErrInvalidBarSequence means out-of-order input or a malformed OHLC bar.
	// Fatal for that simulation run.
	ErrInvalidBarSequence = errors.New("invalid bar sequence")
)
