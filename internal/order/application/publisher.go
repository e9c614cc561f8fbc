// Package application implements the order-processing pipeline's business
// logic: the processor (Component C), the ingest consumer and retry/DLT
// router (Component D), and the DLT reconciler (Component E).
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
)

// CompletionPublisher emits the completion event for a processed order.
// Implementations must only be invoked after the owning transaction has
// committed (spec §4.5, §9) — the publisher itself never opens or closes a
// transaction and never causes one to roll back.
type CompletionPublisher interface {
	Publish(ctx context.Context, order *domain.Order) error
}

// rabbitPublisher is the signature the rabbitmq.TopologyManager satisfies;
// declared narrowly here so this package doesn't import the rabbitmq
// implementation package directly.
type rabbitPublisher interface {
	PublishProcessed(ctx context.Context, orderID string, body []byte) error
}

// RabbitCompletionPublisher publishes completion events to the processed
// topic via the queue topology.
type RabbitCompletionPublisher struct {
	topology rabbitPublisher
}

func NewRabbitCompletionPublisher(topology rabbitPublisher) *RabbitCompletionPublisher {
	return &RabbitCompletionPublisher{topology: topology}
}

func (p *RabbitCompletionPublisher) Publish(ctx context.Context, order *domain.Order) error {
	event := toCompletionEvent(order)
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}
	if err := p.topology.PublishProcessed(ctx, order.ID(), body); err != nil {
		// A publish failure after commit does not unwind the transaction
		// (spec §4.5); it is logged for operator follow-up only.
		log.Printf("completion publish failed for order %s: %v", order.ID(), err)
		return err
	}
	return nil
}

func toCompletionEvent(order *domain.Order) ordermsg.CompletionEvent {
	items := make([]ordermsg.CompletionItem, 0, len(order.Items()))
	for _, item := range order.Items() {
		items = append(items, ordermsg.CompletionItem{
			ProductID: item.ProductID(),
			Quantity:  item.Quantity(),
			Price:     item.Price(),
		})
	}
	return ordermsg.CompletionEvent{
		OrderID:     order.ID(),
		Status:      order.Status().String(),
		Total:       order.Total(),
		ProcessedAt: time.Now(),
		Items:       items,
	}
}

// PendingSideEffect is a side effect deferred until after a transaction
// commits (spec §9's design note): the processor appends exactly one
// completion-publish effect per successfully processed order instead of
// calling the publisher inline, so a later rollback can never leave a
// completion event published for work that was never durably saved.
type PendingSideEffect func(ctx context.Context) error

// Drain runs each pending side effect in order, logging (not failing) on
// any individual error — a publish failure must never surface as an
// ingestion failure, since the database work it reports on already
// committed.
func Drain(ctx context.Context, effects []PendingSideEffect) {
	for _, effect := range effects {
		if err := effect(ctx); err != nil {
			log.Printf("post-commit side effect failed: %v", err)
		}
	}
}
