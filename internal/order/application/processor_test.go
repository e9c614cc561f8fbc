package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fqueis/moutsti-order-service/internal/order/application"
	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
	dbtest "github.com/fqueis/moutsti-order-service/shared/test"
)

type recordingPublisher struct {
	calls []*domain.Order
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, order *domain.Order) error {
	p.calls = append(p.calls, order)
	return p.err
}

func validRequest() ordermsg.OrderRequest {
	return ordermsg.OrderRequest{
		Items: []ordermsg.OrderItemRequest{
			{ProductID: "P1", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ProductID: "P2", Quantity: 1, Price: decimal.RequireFromString("5.25")},
		},
	}
}

func TestProcessor_Process_PublishesOnlyAfterCommit(t *testing.T) {
	db := dbtest.NewMockDatabase()
	tx := dbtest.NewMockTransaction()

	db.On("Begin").Return(tx, nil)
	tx.On("ExecContext", mock.Anything, mock.Anything, mock.Anything).Return(&dbtest.MockResult{Rows: 1}, nil)
	tx.On("Commit").Return(nil)

	publisher := &recordingPublisher{}
	processor := application.NewProcessor(db, publisher)

	order, err := processor.Process(context.Background(), validRequest(), "K1")

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessed, order.Status())
	require.Len(t, publisher.calls, 1, "completion event must be published exactly once (invariant 5)")
	assert.Equal(t, order.ID(), publisher.calls[0].ID())

	db.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestProcessor_Process_RollsBackAndDoesNotPublishOnSaveFailure(t *testing.T) {
	db := dbtest.NewMockDatabase()
	tx := dbtest.NewMockTransaction()

	db.On("Begin").Return(tx, nil)
	tx.On("ExecContext", mock.Anything, mock.Anything, mock.Anything).
		Return((*dbtest.MockResult)(nil), errors.New("connection reset"))
	tx.On("Rollback").Return(nil)

	publisher := &recordingPublisher{}
	processor := application.NewProcessor(db, publisher)

	_, err := processor.Process(context.Background(), validRequest(), "K1")

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Empty(t, publisher.calls, "a rolled-back transaction must never publish a completion event")
	tx.AssertExpectations(t)
}

func TestProcessor_Process_RejectsEmptyItems(t *testing.T) {
	db := dbtest.NewMockDatabase()
	publisher := &recordingPublisher{}
	processor := application.NewProcessor(db, publisher)

	_, err := processor.Process(context.Background(), ordermsg.OrderRequest{}, "K1")

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, publisher.calls)
}

func TestProcessor_Process_RejectsMissingIdempotencyKey(t *testing.T) {
	db := dbtest.NewMockDatabase()
	publisher := &recordingPublisher{}
	processor := application.NewProcessor(db, publisher)

	_, err := processor.Process(context.Background(), validRequest(), "")

	assert.ErrorIs(t, err, domain.ErrMissingIdempotencyKey)
}
