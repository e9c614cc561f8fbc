package domain

import "errors"

// Error taxonomy from spec §7. The ingest consumer classifies exceptions
// against these sentinels with errors.Is; anything else is treated as
// TransientInfra and counts against the retry budget.
var (
	// ErrMissingIdempotencyKey: inbound header absent. Routed to DLT immediately, no retry.
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")

	// ErrInvalidRequest: processor validation failure (empty items, bad price, etc).
	// Non-retryable; surfaced to the error handler, which routes to DLT.
	ErrInvalidRequest = errors.New("invalid order request")

	// ErrDuplicateKey: DB unique-index violation on idempotency_key.
	// Non-retryable; logged; routed to DLT.
	ErrDuplicateKey = errors.New("duplicate idempotency key")

	// ErrTransient: KV/DB/bus connectivity failure. Retryable, counts against
	// the 3-attempt budget.
	ErrTransient = errors.New("transient infrastructure failure")

	// ErrPayloadUndecodable: the DLT reconciler could not parse the payload as
	// an order request. Logged and dropped.
	ErrPayloadUndecodable = errors.New("dead-letter payload undecodable")

	// ErrNotFound is returned by repository lookups that find nothing.
	ErrNotFound = errors.New("order not found")
)
