// Package persistence implements Component B (Order Repository) over the
// shared database.Queryer abstraction, grounded on
// infra/persistence/order_repository.go's DTO-mapper pattern.
package persistence

import "time"

// OrderDTO mirrors the orders table.
type OrderDTO struct {
	ID             string    `db:"id"`
	IdempotencyKey string    `db:"idempotency_key"`
	Status         string    `db:"status"`
	Total          string    `db:"total"` // NUMERIC scanned as string to avoid float round-trip
	FailureReason  *string   `db:"failure_reason"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	Version        int       `db:"version"`
}

// OrderItemDTO mirrors the order_items table.
type OrderItemDTO struct {
	ID        string `db:"id"`
	OrderID   string `db:"order_id"`
	ProductID string `db:"product_id"`
	Quantity  int    `db:"quantity"`
	Price     string `db:"price"`
}
