package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/fqueis/moutsti-order-service/internal/order/config"
	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
	"github.com/fqueis/moutsti-order-service/shared/infra/messaging"
)

// dltRouter is the narrow slice of *rabbitmq.TopologyManager the consumer
// needs, declared here so this package doesn't depend on the rabbitmq
// implementation package directly.
type dltRouter interface {
	PublishRetry(ctx context.Context, body []byte, idempotencyKey string, attempt int) error
	PublishDLT(ctx context.Context, body []byte, idempotencyKey, exceptionClass, exceptionMessage string) error
}

// Consumer implements spec §4.4: it drives the idempotency gate and the
// processor for each record on the primary stream, retrying with
// exponential backoff before routing exhausted records to the DLT.
type Consumer struct {
	gate      domain.IdempotencyGate
	processor *Processor
	router    dltRouter
	retry     config.RetryConfig
}

func NewConsumer(gate domain.IdempotencyGate, processor *Processor, router dltRouter, retry config.RetryConfig) *Consumer {
	return &Consumer{gate: gate, processor: processor, router: router, retry: retry}
}

// HandleMessage implements messaging.MessageConsumer.
func (c *Consumer) HandleMessage(ctx context.Context, message *messaging.Message) error {
	idempotencyKey, ok := headerString(message.Headers, ordermsg.HeaderIdempotencyKey)
	if !ok || idempotencyKey == "" {
		log.Printf("message missing %s header, routing to DLT", ordermsg.HeaderIdempotencyKey)
		if err := c.router.PublishDLT(ctx, message.Body, "", "MissingIdempotencyKey", "no idempotency key header present"); err != nil {
			return fmt.Errorf("failed to route headerless message to DLT: %w", err)
		}
		return message.Ack()
	}

	result, err := c.gate.TryClaim(ctx, idempotencyKey)
	if err != nil {
		// KV unavailability is TransientInfra (spec §7): it counts against
		// the retry budget like any other transient failure rather than
		// being redelivered unboundedly.
		return c.routeToRetry(ctx, message, idempotencyKey, fmt.Errorf("%w: idempotency gate unavailable: %v", domain.ErrTransient, err))
	}

	switch result {
	case domain.AlreadyProcessed:
		log.Printf("idempotency key %s already processed, skipping", idempotencyKey)
		return message.Ack()
	case domain.AlreadyProcessing:
		if attemptFromHeaders(message.Headers) == 0 {
			log.Printf("idempotency key %s already in flight, skipping", idempotencyKey)
			return message.Ack()
		}
		// A retry delivery still holds the claim its first attempt took, so
		// the PROCESSING marker is its own and processing continues.
	case domain.UnknownValue:
		log.Printf("idempotency key %s holds an unrecognized gate value, skipping without retry", idempotencyKey)
		return message.Ack()
	case domain.Claimed:
		// fall through to processing
	}

	var request ordermsg.OrderRequest
	if err := json.Unmarshal(message.Body, &request); err != nil {
		return c.routeToDLT(ctx, message, idempotencyKey, "PayloadUndecodable", err)
	}

	order, procErr := c.processor.Process(ctx, request, idempotencyKey)
	if procErr != nil {
		if errors.Is(procErr, domain.ErrInvalidRequest) || errors.Is(procErr, domain.ErrDuplicateKey) {
			return c.routeToDLT(ctx, message, idempotencyKey, classifyException(procErr), procErr)
		}
		return c.routeToRetry(ctx, message, idempotencyKey, procErr)
	}

	if err := c.gate.MarkCompleted(ctx, idempotencyKey); err != nil {
		log.Printf("order %s processed but markCompleted failed: %v", order.ID(), err)
	}
	return message.Ack()
}

func (c *Consumer) routeToRetry(ctx context.Context, message *messaging.Message, idempotencyKey string, procErr error) error {
	attempt := attemptFromHeaders(message.Headers) + 1
	if attempt >= c.retry.MaxAttempts {
		return c.routeToDLT(ctx, message, idempotencyKey, classifyException(procErr), procErr)
	}
	if err := c.router.PublishRetry(ctx, message.Body, idempotencyKey, attempt); err != nil {
		return fmt.Errorf("failed to route message to retry queue: %w", err)
	}
	return message.Ack()
}

func (c *Consumer) routeToDLT(ctx context.Context, message *messaging.Message, idempotencyKey, exceptionClass string, cause error) error {
	if err := c.router.PublishDLT(ctx, message.Body, idempotencyKey, exceptionClass, cause.Error()); err != nil {
		return fmt.Errorf("failed to route exhausted message to DLT: %w", err)
	}
	return message.Ack()
}

func classifyException(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return "InvalidRequest"
	case errors.Is(err, domain.ErrDuplicateKey):
		return "DuplicateKey"
	case errors.Is(err, domain.ErrPayloadUndecodable):
		return "PayloadUndecodable"
	default:
		return "TransientInfra"
	}
}

func headerString(headers map[string]interface{}, key string) (string, bool) {
	v, ok := headers[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func attemptFromHeaders(headers map[string]interface{}) int {
	v, ok := headers[ordermsg.HeaderRetryAttempt]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
