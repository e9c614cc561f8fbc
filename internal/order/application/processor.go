package application

import (
	"context"
	"fmt"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/persistence"
	"github.com/fqueis/moutsti-order-service/shared/infra/database"
)

// Processor implements spec §4.3's state machine: validate, walk the order
// through RECEIVED/PROCESSING/PROCESSED, save inside one transaction, and
// schedule the completion publish for after that transaction commits.
type Processor struct {
	db        database.Database
	publisher CompletionPublisher
}

func NewProcessor(db database.Database, publisher CompletionPublisher) *Processor {
	return &Processor{db: db, publisher: publisher}
}

// Process runs one request end-to-end. It returns domain.ErrInvalidRequest
// for bad input, domain.ErrDuplicateKey if the idempotency key was already
// persisted by a racing worker, or domain.ErrTransient for any other
// persistence failure — all non-retryable except the last.
func (p *Processor) Process(ctx context.Context, request ordermsg.OrderRequest, idempotencyKey string) (*domain.Order, error) {
	order, err := buildReceivedOrder(request, idempotencyKey)
	if err != nil {
		return nil, err
	}

	if err := order.MarkProcessing(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	order.ComputeTotal()
	if err := order.MarkProcessed(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start transaction: %v", domain.ErrTransient, err)
	}

	repo := persistence.NewOrderRepository(tx)
	if err := repo.SaveNew(ctx, order); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit failed: %v", domain.ErrTransient, err)
	}

	// Publish only fires once the transaction above has durably committed
	// (spec §4.5, §9) — never inline with the save.
	Drain(ctx, []PendingSideEffect{
		func(ctx context.Context) error {
			return p.publisher.Publish(ctx, order)
		},
	})

	return order, nil
}

func buildReceivedOrder(request ordermsg.OrderRequest, idempotencyKey string) (*domain.Order, error) {
	if idempotencyKey == "" {
		return nil, domain.ErrMissingIdempotencyKey
	}
	if len(request.Items) == 0 {
		return nil, fmt.Errorf("%w: order must have at least one item", domain.ErrInvalidRequest)
	}

	items := make([]*domain.OrderItem, 0, len(request.Items))
	for _, itemReq := range request.Items {
		item, err := domain.NewOrderItem("", itemReq.ProductID, itemReq.Quantity, itemReq.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		items = append(items, item)
	}

	order, err := domain.NewReceivedOrder(idempotencyKey, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return order, nil
}
