package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/google/uuid"
)

// Order is the aggregate root for the ingestion pipeline.
// @Description Order entity representing an ingested, exactly-once-processed order
type Order struct {
	id             string
	idempotencyKey string
	status         OrderStatus
	total          decimal.Decimal
	items          []*OrderItem
	failureReason  *string
	createdAt      time.Time
	updatedAt      time.Time
	version        int
}

// NewReceivedOrder builds a fresh Order in RECEIVED status from a validated
// request, per spec §4.3 step 1. id is minted here; persistence is
// responsible for assigning item ids.
func NewReceivedOrder(idempotencyKey string, items []*OrderItem) (*Order, error) {
	if idempotencyKey == "" {
		return nil, errors.New("idempotencyKey cannot be empty")
	}
	if len(items) == 0 {
		return nil, errors.New("order must have at least one item")
	}

	now := time.Now()
	return &Order{
		id:             uuid.New().String(),
		idempotencyKey: idempotencyKey,
		status:         OrderStatusReceived,
		total:          decimal.Zero,
		items:          items,
		createdAt:      now,
		updatedAt:      now,
		version:        0,
	}, nil
}

// NewOrderFromStore reconstructs an Order from persisted fields. Used by the
// repository mapper.
func NewOrderFromStore(
	id, idempotencyKey string,
	status OrderStatus,
	total decimal.Decimal,
	items []*OrderItem,
	failureReason *string,
	createdAt, updatedAt time.Time,
	version int,
) *Order {
	return &Order{
		id:             id,
		idempotencyKey: idempotencyKey,
		status:         status,
		total:          total,
		items:          items,
		failureReason:  failureReason,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		version:        version,
	}
}

// NewFailedOrder creates a terminal FAILED order directly, used by the DLT
// reconciler when no row exists yet for the idempotency key (spec §4.6).
// total is always zero here: a FAILED order never had its total computed.
func NewFailedOrder(idempotencyKey string, items []*OrderItem, failureReason string) *Order {
	now := time.Now()
	return &Order{
		id:             uuid.New().String(),
		idempotencyKey: idempotencyKey,
		status:         OrderStatusFailed,
		total:          decimal.Zero,
		items:          items,
		failureReason:  &failureReason,
		createdAt:      now,
		updatedAt:      now,
		version:        0,
	}
}

// Getters

func (o *Order) ID() string                  { return o.id }
func (o *Order) IdempotencyKey() string       { return o.idempotencyKey }
func (o *Order) Status() OrderStatus          { return o.status }
func (o *Order) Total() decimal.Decimal       { return o.total }
func (o *Order) Items() []*OrderItem          { return o.items }
func (o *Order) FailureReason() *string       { return o.failureReason }
func (o *Order) CreatedAt() time.Time         { return o.createdAt }
func (o *Order) UpdatedAt() time.Time         { return o.updatedAt }
func (o *Order) Version() int                 { return o.version }

// MarkProcessing transitions RECEIVED -> PROCESSING (spec §4.3 step 3).
func (o *Order) MarkProcessing() error {
	if !o.status.CanTransitionTo(OrderStatusProcessing) {
		return errors.New("order cannot move to PROCESSING from " + string(o.status))
	}
	o.status = OrderStatusProcessing
	o.updatedAt = time.Now()
	return nil
}

// ComputeTotal sums price*quantity across items using fixed-point decimal
// arithmetic with half-up rounding to scale 2 (spec §4.3 step 4, §9).
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.items {
		total = total.Add(item.Subtotal())
	}
	o.total = total.Round(2)
	return o.total
}

// MarkProcessed transitions PROCESSING -> PROCESSED (spec §4.3 step 5).
// The caller must have called ComputeTotal first; MarkProcessed enforces
// invariant 2 (total >= 0 and at least one item) before flipping status.
func (o *Order) MarkProcessed() error {
	if !o.status.CanTransitionTo(OrderStatusProcessed) {
		return errors.New("order cannot move to PROCESSED from " + string(o.status))
	}
	if o.total.IsNegative() {
		return errors.New("total must be >= 0")
	}
	if len(o.items) == 0 {
		return errors.New("a PROCESSED order must have at least one item")
	}
	o.status = OrderStatusProcessed
	o.updatedAt = time.Now()
	return nil
}

// MarkFailed is reachable only from the DLT reconciler (spec §4.6), moving
// RECEIVED or PROCESSING to the terminal FAILED status.
func (o *Order) MarkFailed(reason string) error {
	if !o.status.CanTransitionTo(OrderStatusFailed) {
		return errors.New("order cannot move to FAILED from " + string(o.status))
	}
	o.status = OrderStatusFailed
	o.failureReason = &reason
	o.updatedAt = time.Now()
	return nil
}

// IncrementVersion bumps the optimistic-concurrency counter. Callers (the DLT
// reconciler) call it before the repository's Update, which expects the
// in-memory version to be already bumped.
func (o *Order) IncrementVersion() {
	o.version++
}
