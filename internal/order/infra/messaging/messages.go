// Package messaging defines the wire contracts (header names and payload
// types) for the primary, dead-letter, and completion topics (spec §6).
package messaging

import (
	"time"

	"github.com/shopspring/decimal"
)

// Header names carried on bus records (spec §4.4, §4.6, §6).
const (
	HeaderIdempotencyKey = "X-Idempotency-Key"
	HeaderExceptionClass = "X-Exception-Class"
	HeaderExceptionMsg   = "X-Exception-Message"
	HeaderRetryAttempt   = "X-Retry-Attempt"
)

// OrderItemRequest is one line item of an inbound order request (spec §6).
type OrderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderRequest is the inbound primary-topic payload (spec §6).
type OrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// CompletionItem is one line item in the outbound completion event.
type CompletionItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CompletionEvent is the outbound completion-topic payload (spec §4.5, §6),
// keyed by orderId.toString() when published.
type CompletionEvent struct {
	OrderID     string           `json:"orderId"`
	Status      string           `json:"status"`
	Total       decimal.Decimal  `json:"total"`
	ProcessedAt time.Time        `json:"processedAt"`
	Items       []CompletionItem `json:"items"`
}
