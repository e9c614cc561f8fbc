package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	"github.com/fqueis/moutsti-order-service/shared/infra/database"
)

const pqUniqueViolation = "23505"

// OrderRepository implements domain.OrderRepository against anything
// satisfying database.Queryer — either the top-level Database or a single
// open Transaction, so the Order Processor can scope a repository to its
// ambient transaction (spec §4.2: "All writes within a single request
// happen inside one database transaction").
type OrderRepository struct {
	exec database.Queryer
}

func NewOrderRepository(exec database.Queryer) domain.OrderRepository {
	return &OrderRepository{exec: exec}
}

func (r *OrderRepository) SaveNew(ctx context.Context, order *domain.Order) error {
	if order == nil {
		return fmt.Errorf("order cannot be nil")
	}

	orderDTO := ToOrderDTO(order)

	_, err := r.exec.ExecContext(ctx, `
		INSERT INTO orders (id, idempotency_key, status, total, failure_reason, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		orderDTO.ID, orderDTO.IdempotencyKey, orderDTO.Status, orderDTO.Total,
		orderDTO.FailureReason, orderDTO.CreatedAt, orderDTO.UpdatedAt, orderDTO.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
		}
		return fmt.Errorf("%w: save order: %v", domain.ErrTransient, err)
	}

	for i, itemDTO := range ToItemDTOs(order) {
		id := itemDTO.ID
		if id == "" {
			id = uuid.New().String()
			order.Items()[i].SetID(id)
		}
		_, err := r.exec.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			id, itemDTO.OrderID, itemDTO.ProductID, itemDTO.Quantity, itemDTO.Price,
		)
		if err != nil {
			return fmt.Errorf("%w: save order item: %v", domain.ErrTransient, err)
		}
	}

	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if order == nil {
		return fmt.Errorf("order cannot be nil")
	}

	orderDTO := ToOrderDTO(order)
	expectedVersion := orderDTO.Version - 1 // IncrementVersion already bumped it on the in-memory aggregate

	result, err := r.exec.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, total = $2, failure_reason = $3, updated_at = $4, version = $5
		WHERE id = $6 AND version = $7`,
		orderDTO.Status, orderDTO.Total, orderDTO.FailureReason, orderDTO.UpdatedAt,
		orderDTO.Version, orderDTO.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("%w: update order: %v", domain.ErrTransient, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrTransient, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: order %s (stale version or missing)", domain.ErrNotFound, orderDTO.ID)
	}

	return nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var orderDTO OrderDTO
	err := r.exec.Get(&orderDTO, `
		SELECT id, idempotency_key, status, total, failure_reason, created_at, updated_at, version
		FROM orders WHERE idempotency_key = $1`, key)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find order: %v", domain.ErrTransient, err)
	}

	var itemDTOs []*OrderItemDTO
	err = r.exec.Select(&itemDTOs, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = $1`, orderDTO.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: find order items: %v", domain.ErrTransient, err)
	}

	return ToDomain(&orderDTO, itemDTOs)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key")
}

func isNoRows(err error) bool {
	return strings.Contains(err.Error(), "no rows")
}
