// Package rabbitmq declares and wires the received/DLT/processed topic
// topology (spec §4.4, §6), adapting the teacher's queue-manager pattern to
// this pipeline's exact retry numbers.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/fqueis/moutsti-order-service/internal/order/config"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
	"github.com/fqueis/moutsti-order-service/shared/infra/messaging"
)

// TopicNames names the queues/exchanges backing the three logical topics.
type TopicNames struct {
	Received  string
	DLT       string
	Processed string

	RetryExchange string
	Retry         string
}

func topicNamesFrom(topics config.TopicConfig) TopicNames {
	return TopicNames{
		Received:      topics.ReceivedTopic,
		DLT:           topics.DLTTopic,
		Processed:     topics.ProcessedTopic,
		RetryExchange: topics.ReceivedTopic + ".retry.exchange",
		Retry:         topics.ReceivedTopic + ".retry",
	}
}

// TopologyManager declares the queue topology that implements spec §4.4's
// retry/dead-letter routing on top of a plain MessageHandler.
type TopologyManager struct {
	messageHandler messaging.MessageHandler
	names          TopicNames
	retry          config.RetryConfig
}

func NewTopologyManager(messageHandler messaging.MessageHandler, cfg config.Config) *TopologyManager {
	return &TopologyManager{
		messageHandler: messageHandler,
		names:          topicNamesFrom(cfg.Topics),
		retry:          cfg.Retry,
	}
}

// SetupAll declares the received, retry, DLT, and processed queues.
func (tm *TopologyManager) SetupAll(ctx context.Context) error {
	received := messaging.QueueOptions{
		Durable: true,
		Arguments: map[string]interface{}{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": tm.names.DLT,
		},
	}
	if err := tm.messageHandler.DeclareQueue(tm.names.Received, received); err != nil {
		return fmt.Errorf("failed to declare received queue: %w", err)
	}

	// Retry queue carries no queue-level x-message-ttl: RabbitMQ applies the
	// lower of a queue's x-message-ttl and a message's own expiration, so a
	// fixed queue TTL would clamp every attempt to the same delay. The delay
	// is instead set per-publish (PublishRetry) via the message's Expiration,
	// so each attempt actually waits NextDelay(attempt) before redelivery.
	retry := messaging.QueueOptions{
		Durable: true,
		Arguments: map[string]interface{}{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": tm.names.Received,
		},
	}
	if err := tm.messageHandler.DeclareQueue(tm.names.Retry, retry); err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	dlt := messaging.QueueOptions{Durable: true}
	if err := tm.messageHandler.DeclareQueue(tm.names.DLT, dlt); err != nil {
		return fmt.Errorf("failed to declare DLT queue: %w", err)
	}

	processed := messaging.QueueOptions{Durable: true}
	if err := tm.messageHandler.DeclareQueue(tm.names.Processed, processed); err != nil {
		return fmt.Errorf("failed to declare processed queue: %w", err)
	}

	return nil
}

// Names exposes the resolved topic/queue names.
func (tm *TopologyManager) Names() TopicNames {
	return tm.names
}

// NextDelay computes the backoff delay before the given retry attempt
// (1-indexed), capped at MaxInterval (spec §4.4: 1s, 2s, 4s→capped to 5s...).
func NextDelay(retry config.RetryConfig, attempt int) time.Duration {
	delay := retry.InitialInterval
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * retry.Multiplier)
		if delay > retry.MaxInterval {
			delay = retry.MaxInterval
			break
		}
	}
	if delay > retry.MaxInterval {
		delay = retry.MaxInterval
	}
	return delay
}

// PublishRetry re-enqueues a message onto the retry queue with a TTL
// matching the backoff delay for the given attempt number.
func (tm *TopologyManager) PublishRetry(ctx context.Context, body []byte, idempotencyKey string, attempt int) error {
	delay := NextDelay(tm.retry, attempt)
	return tm.messageHandler.PublishWithOptions(ctx, messaging.PublishOptions{
		QueueName:  tm.names.Retry,
		Message:    body,
		Persistent: true,
		TTL:        int64(delay / time.Millisecond),
		Headers: map[string]interface{}{
			ordermsg.HeaderIdempotencyKey: idempotencyKey,
			ordermsg.HeaderRetryAttempt:   attempt,
		},
	})
}

// PublishDLT routes a message to the dead-letter topic with the diagnostic
// headers spec §4.4/§4.6 expect the reconciler to read.
func (tm *TopologyManager) PublishDLT(ctx context.Context, body []byte, idempotencyKey, exceptionClass, exceptionMessage string) error {
	return tm.messageHandler.PublishWithOptions(ctx, messaging.PublishOptions{
		QueueName:  tm.names.DLT,
		Message:    body,
		Persistent: true,
		Headers: map[string]interface{}{
			ordermsg.HeaderIdempotencyKey: idempotencyKey,
			ordermsg.HeaderExceptionClass: exceptionClass,
			ordermsg.HeaderExceptionMsg:   exceptionMessage,
		},
	})
}

// PublishProcessed emits a completion event body to the processed topic,
// keyed by the order id as the message's correlation id.
func (tm *TopologyManager) PublishProcessed(ctx context.Context, orderID string, body []byte) error {
	return tm.messageHandler.PublishWithOptions(ctx, messaging.PublishOptions{
		QueueName:     tm.names.Processed,
		Message:       body,
		Persistent:    true,
		CorrelationID: orderID,
		MessageID:     orderID,
	})
}
