package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fqueis/moutsti-order-service/internal/order/application"
	"github.com/fqueis/moutsti-order-service/internal/order/config"
	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/idempotency"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
	"github.com/fqueis/moutsti-order-service/shared/infra/database"
	"github.com/fqueis/moutsti-order-service/shared/infra/messaging"
	dbtest "github.com/fqueis/moutsti-order-service/shared/test"
)

type fakeRouter struct {
	retries []int
	dlts    int
}

func (r *fakeRouter) PublishRetry(ctx context.Context, body []byte, idempotencyKey string, attempt int) error {
	r.retries = append(r.retries, attempt)
	return nil
}

func (r *fakeRouter) PublishDLT(ctx context.Context, body []byte, idempotencyKey, exceptionClass, exceptionMessage string) error {
	r.dlts++
	return nil
}

// errorGate simulates a KV store that is unreachable: every TryClaim fails.
type errorGate struct{}

func (errorGate) TryClaim(ctx context.Context, idempotencyKey string) (domain.ClaimResult, error) {
	return domain.UnknownValue, errors.New("connection refused")
}

func (errorGate) MarkCompleted(ctx context.Context, idempotencyKey string) error { return nil }

func (errorGate) Release(ctx context.Context, idempotencyKey string) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, order *domain.Order) error { return nil }

func newMessage(body []byte, headers map[string]interface{}) *messaging.Message {
	return &messaging.Message{Body: body, Headers: headers}
}

func bodyFor(t *testing.T, req ordermsg.OrderRequest) []byte {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

// transientDB always fails to begin a transaction, forcing the processor to
// return domain.ErrTransient without needing a live database.
func transientDB() database.Database {
	db := dbtest.NewMockDatabase()
	db.On("Begin").Return((*dbtest.MockTransaction)(nil), errors.New("connection refused"))
	return db
}

func TestConsumer_HandleMessage_MissingIdempotencyKeyGoesDirectlyToDLT(t *testing.T) {
	gate := idempotency.NewFakeGate()
	router := &fakeRouter{}
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(gate, processor, router, config.RetryConfig{MaxAttempts: 3})

	msg := newMessage([]byte(`{}`), map[string]interface{}{})
	err := consumer.HandleMessage(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, 1, router.dlts)
	assert.Empty(t, router.retries)
}

func TestConsumer_HandleMessage_AlreadyProcessedSkipsWithoutReprocessing(t *testing.T) {
	gate := idempotency.NewFakeGate()
	require.NoError(t, gate.MarkCompleted(context.Background(), "K1"))

	router := &fakeRouter{}
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(gate, processor, router, config.RetryConfig{MaxAttempts: 3})

	headers := map[string]interface{}{ordermsg.HeaderIdempotencyKey: "K1"}
	err := consumer.HandleMessage(context.Background(), newMessage([]byte(`{}`), headers))

	require.NoError(t, err)
	assert.Zero(t, router.dlts)
	assert.Empty(t, router.retries)
}

func TestConsumer_HandleMessage_UndecodablePayloadRoutesToDLT(t *testing.T) {
	gate := idempotency.NewFakeGate()
	router := &fakeRouter{}
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(gate, processor, router, config.RetryConfig{MaxAttempts: 3})

	headers := map[string]interface{}{ordermsg.HeaderIdempotencyKey: "K1"}
	err := consumer.HandleMessage(context.Background(), newMessage([]byte(`not json`), headers))

	require.NoError(t, err)
	assert.Equal(t, 1, router.dlts)
}

func TestConsumer_RetryBudget_RoutesToDLTAfterMaxAttempts(t *testing.T) {
	router := &fakeRouter{}
	retry := config.RetryConfig{MaxAttempts: 3}

	headers := map[string]interface{}{
		ordermsg.HeaderIdempotencyKey: "K1",
		ordermsg.HeaderRetryAttempt:   2,
	}

	gate := idempotency.NewFakeGate()
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(gate, processor, router, retry)

	err := consumer.HandleMessage(context.Background(), newMessage(bodyFor(t, validRequest()), headers))

	require.NoError(t, err)
	assert.Equal(t, 1, router.dlts, "attempt 3 (the last) must exhaust the retry budget and go to DLT")
	assert.Empty(t, router.retries)
}

func TestConsumer_RetryBudget_RetriesBeforeExhausted(t *testing.T) {
	router := &fakeRouter{}
	retry := config.RetryConfig{MaxAttempts: 3}

	headers := map[string]interface{}{
		ordermsg.HeaderIdempotencyKey: "K1",
	}

	gate := idempotency.NewFakeGate()
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(gate, processor, router, retry)

	err := consumer.HandleMessage(context.Background(), newMessage(bodyFor(t, validRequest()), headers))

	require.NoError(t, err)
	assert.Equal(t, 0, router.dlts)
	require.Len(t, router.retries, 1)
	assert.Equal(t, 1, router.retries[0])
}

func TestConsumer_HandleMessage_GateUnavailableCountsAgainstRetryBudget(t *testing.T) {
	router := &fakeRouter{}
	retry := config.RetryConfig{MaxAttempts: 3}
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(errorGate{}, processor, router, retry)

	headers := map[string]interface{}{ordermsg.HeaderIdempotencyKey: "K1"}
	err := consumer.HandleMessage(context.Background(), newMessage([]byte(`{}`), headers))

	require.NoError(t, err)
	assert.Zero(t, router.dlts, "a gate failure must be retried, not dropped or redelivered forever")
	require.Len(t, router.retries, 1)
	assert.Equal(t, 1, router.retries[0])
}

func TestConsumer_HandleMessage_GateUnavailableRoutesToDLTAfterMaxAttempts(t *testing.T) {
	router := &fakeRouter{}
	retry := config.RetryConfig{MaxAttempts: 3}
	processor := application.NewProcessor(transientDB(), noopPublisher{})
	consumer := application.NewConsumer(errorGate{}, processor, router, retry)

	headers := map[string]interface{}{
		ordermsg.HeaderIdempotencyKey: "K1",
		ordermsg.HeaderRetryAttempt:   2,
	}
	err := consumer.HandleMessage(context.Background(), newMessage([]byte(`{}`), headers))

	require.NoError(t, err)
	assert.Equal(t, 1, router.dlts, "a gate failure must exhaust the same retry budget as any other TransientInfra error")
	assert.Empty(t, router.retries)
}
