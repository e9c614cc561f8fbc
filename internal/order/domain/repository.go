package domain

import "context"

// OrderRepository is Component B: durable Order+OrderItem storage with a
// unique-key constraint on idempotencyKey and optimistic versioning.
// Grounded on the shape of infra/persistence/order_repository.go, narrowed
// to the two operations the core ingestion path needs plus the lookups the
// DLT reconciler needs.
type OrderRepository interface {
	// SaveNew persists a brand-new Order (status PROCESSED on the happy
	// path, FAILED when created directly by the reconciler). Returns
	// ErrDuplicateKey if idempotencyKey already exists, ErrTransient on
	// connectivity failure.
	SaveNew(ctx context.Context, order *Order) error

	// Update persists changes to an existing Order (used by the reconciler
	// to flip an existing row to FAILED), enforcing the optimistic version.
	Update(ctx context.Context, order *Order) error

	// FindByIdempotencyKey returns the order for key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
}
