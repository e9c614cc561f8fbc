package domain

import (
	"context"
	"time"
)

// ClaimResult is the outcome of a tryClaim call (spec §4.1).
type ClaimResult int

const (
	// Claimed means the set-if-absent succeeded; the caller owns the key and
	// must proceed to process().
	Claimed ClaimResult = iota
	// AlreadyProcessing means another worker (or this worker's own earlier,
	// still-live attempt) holds the key.
	AlreadyProcessing
	// AlreadyProcessed means the key reached PROCESSED previously.
	AlreadyProcessed
	// UnknownValue means the key exists with a value that is neither
	// PROCESSING nor PROCESSED — treated as corrupted state.
	UnknownValue
)

func (r ClaimResult) String() string {
	switch r {
	case Claimed:
		return "Claimed"
	case AlreadyProcessing:
		return "AlreadyProcessing"
	case AlreadyProcessed:
		return "AlreadyProcessed"
	case UnknownValue:
		return "UnknownValue"
	default:
		return "Unknown"
	}
}

const (
	// ProcessingTTL bounds how long a claim is held before it is considered
	// abandoned (spec §3, §9 "Claim expiration race"). The DB unique index
	// is the backstop if a worker dies mid-claim.
	ProcessingTTL = time.Hour
	// ProcessedTTL bounds how long a PROCESSED marker is retained to dedupe
	// redeliveries (spec §3).
	ProcessedTTL = 24 * time.Hour
)

// IdempotencyGate is Component A. Implementations must make tryClaim atomic
// across competing processes (invariant 1, "single-winner claim") — the gate
// itself never blocks, it is a pure CAS decision point (spec §4.1).
type IdempotencyGate interface {
	// TryClaim attempts to set key -> "PROCESSING" with ProcessingTTL,
	// atomically. On failure to claim, reads back the current value to
	// classify the outcome.
	TryClaim(ctx context.Context, idempotencyKey string) (ClaimResult, error)

	// MarkCompleted unconditionally sets key -> "PROCESSED" with
	// ProcessedTTL. Called only after the processing transaction commits.
	MarkCompleted(ctx context.Context, idempotencyKey string) error

	// Release unsets the key. Not used by the happy path (spec §9 Open
	// Questions); available for callers that choose to release on a final
	// retry-attempt failure instead of letting ProcessingTTL expire.
	Release(ctx context.Context, idempotencyKey string) error
}
