package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
	"github.com/fqueis/moutsti-order-service/shared/infra/messaging"
)

const unknownDLTFailureReason = "Unknown DLT Failure"

// Reconciler implements Component E (spec §4.6): it is the last line of
// defense, recording permanent failure for messages that exhausted the
// ingest consumer's retry budget. It performs zero retries of its own —
// every failure is logged and the record acknowledged (spec §4.6, §7).
type Reconciler struct {
	repo domain.OrderRepository
}

func NewReconciler(repo domain.OrderRepository) *Reconciler {
	return &Reconciler{repo: repo}
}

// HandleMessage implements messaging.MessageConsumer for the DLT topic.
func (r *Reconciler) HandleMessage(ctx context.Context, message *messaging.Message) error {
	idempotencyKey, ok := headerString(message.Headers, ordermsg.HeaderIdempotencyKey)
	if !ok || idempotencyKey == "" {
		log.Printf("DLT record has no idempotency key; nothing to reconcile")
		return message.Ack()
	}

	failureReason := extractFailureReason(message.Headers)

	var request ordermsg.OrderRequest
	decodeErr := json.Unmarshal(message.Body, &request)

	existing, err := r.repo.FindByIdempotencyKey(ctx, idempotencyKey)
	switch {
	case err == nil:
		r.reconcileExisting(ctx, existing, failureReason)
	case errors.Is(err, domain.ErrNotFound):
		r.reconcileAbsent(ctx, idempotencyKey, request, decodeErr, failureReason)
	default:
		log.Printf("DLT reconciliation lookup failed for key %s: %v", idempotencyKey, err)
	}

	return message.Ack()
}

func (r *Reconciler) reconcileExisting(ctx context.Context, order *domain.Order, failureReason string) {
	if order.Status().IsTerminal() {
		log.Printf("order %s already terminal (%s); DLT record ignored (invariant 4)", order.ID(), order.Status())
		return
	}
	if err := order.MarkFailed(failureReason); err != nil {
		log.Printf("failed to mark order %s FAILED: %v", order.ID(), err)
		return
	}
	order.IncrementVersion()
	if err := r.repo.Update(ctx, order); err != nil {
		log.Printf("failed to persist FAILED status for order %s: %v", order.ID(), err)
	}
}

func (r *Reconciler) reconcileAbsent(ctx context.Context, idempotencyKey string, request ordermsg.OrderRequest, decodeErr error, failureReason string) {
	if decodeErr != nil {
		log.Printf("DLT payload for key %s is undecodable, nothing to reconstruct: %v", idempotencyKey, decodeErr)
		return
	}

	items := make([]*domain.OrderItem, 0, len(request.Items))
	for _, itemReq := range request.Items {
		// Best-effort reconstruction; an invalid item is dropped rather than
		// aborting the reconciliation (the row is FAILED and terminal either
		// way — spec §9 Open Questions acknowledges items may end up empty).
		item, err := domain.NewOrderItem("", itemReq.ProductID, itemReq.Quantity, itemReq.Price)
		if err != nil {
			continue
		}
		items = append(items, item)
	}

	order := domain.NewFailedOrder(idempotencyKey, items, failureReason)
	if err := r.repo.SaveNew(ctx, order); err != nil {
		log.Printf("failed to create FAILED order for key %s: %v", idempotencyKey, err)
	}
}

func extractFailureReason(headers map[string]interface{}) string {
	if msg, ok := headerString(headers, ordermsg.HeaderExceptionMsg); ok && msg != "" {
		return msg
	}
	if class, ok := headerString(headers, ordermsg.HeaderExceptionClass); ok && class != "" {
		return class
	}
	return unknownDLTFailureReason
}
