package domain

import "errors"

var (
	// ErrInsufficientData: no ensemble samples and no deterministic fallback value.
	// The affected event is skipped for the cycle.
	ErrInsufficientData = errors.New("insufficient forecast data")

	// ErrInvalidBucketRange: bucket with high <= low (or NaN bounds) from the data source.
	ErrInvalidBucketRange = errors.New("invalid bucket range")

	// ErrNotTiled: bucket ranges of an event leave gaps or overlap.
	ErrNotTiled = errors.New("buckets do not tile the outcome space")

	// ErrAlreadyResolved: resolution attempted on a terminal position. Callers treat it as a no-op.
	ErrAlreadyResolved = errors.New("position already resolved")

	// ErrRiskHalted: the risk guard tripped (minimum bankroll or drawdown). Sticky until resumed.
	ErrRiskHalted = errors.New("risk guard halted new positions")

	// ErrRiskLimit: a single proposal exceeds the exposure or position cap. Not sticky.
	ErrRiskLimit = errors.New("risk limit exceeded")
)
