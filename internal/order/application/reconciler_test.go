package application_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fqueis/moutsti-order-service/internal/order/application"
	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	ordermsg "github.com/fqueis/moutsti-order-service/internal/order/infra/messaging"
)

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) SaveNew(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	args := m.Called(ctx, key)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func TestReconciler_HandleMessage_NoIdempotencyKeyLogsAndSkips(t *testing.T) {
	repo := &mockOrderRepository{}
	reconciler := application.NewReconciler(repo)

	err := reconciler.HandleMessage(context.Background(), newMessage([]byte(`{}`), map[string]interface{}{}))

	require.NoError(t, err)
	repo.AssertNotCalled(t, "FindByIdempotencyKey", mock.Anything, mock.Anything)
}

func TestReconciler_HandleMessage_ExistingNonTerminalOrderMarkedFailed(t *testing.T) {
	item, err := domain.NewOrderItem("", "P1", 1, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	existing, err := domain.NewReceivedOrder("K1", []*domain.OrderItem{item})
	require.NoError(t, err)

	repo := &mockOrderRepository{}
	repo.On("FindByIdempotencyKey", mock.Anything, "K1").Return(existing, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status() == domain.OrderStatusFailed
	})).Return(nil)

	reconciler := application.NewReconciler(repo)
	headers := map[string]interface{}{
		ordermsg.HeaderIdempotencyKey: "K1",
		ordermsg.HeaderExceptionMsg:   "boom",
	}
	err = reconciler.HandleMessage(context.Background(), newMessage([]byte(`not json`), headers))

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReconciler_HandleMessage_ExistingTerminalOrderIsNotMutated(t *testing.T) {
	item, err := domain.NewOrderItem("", "P1", 1, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	existing, err := domain.NewReceivedOrder("K1", []*domain.OrderItem{item})
	require.NoError(t, err)
	require.NoError(t, existing.MarkProcessing())
	existing.ComputeTotal()
	require.NoError(t, existing.MarkProcessed())

	repo := &mockOrderRepository{}
	repo.On("FindByIdempotencyKey", mock.Anything, "K1").Return(existing, nil)

	reconciler := application.NewReconciler(repo)
	headers := map[string]interface{}{ordermsg.HeaderIdempotencyKey: "K1"}
	err = reconciler.HandleMessage(context.Background(), newMessage([]byte(`{}`), headers))

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SaveNew", mock.Anything, mock.Anything)
}

func TestReconciler_HandleMessage_AbsentOrderWithDecodablePayloadCreatesFailedRow(t *testing.T) {
	repo := &mockOrderRepository{}
	repo.On("FindByIdempotencyKey", mock.Anything, "K2").Return(nil, domain.ErrNotFound)
	repo.On("SaveNew", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status() == domain.OrderStatusFailed && o.Total().IsZero()
	})).Return(nil)

	reconciler := application.NewReconciler(repo)
	req := ordermsg.OrderRequest{Items: []ordermsg.OrderItemRequest{{ProductID: "P1", Quantity: 1, Price: decimal.RequireFromString("10.00")}}}
	body := bodyFor(t, req)
	headers := map[string]interface{}{
		ordermsg.HeaderIdempotencyKey: "K2",
		ordermsg.HeaderExceptionClass: "TransientInfra",
	}
	err := reconciler.HandleMessage(context.Background(), newMessage(body, headers))

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReconciler_HandleMessage_AbsentOrderWithUndecodablePayloadLogsOnly(t *testing.T) {
	repo := &mockOrderRepository{}
	repo.On("FindByIdempotencyKey", mock.Anything, "K3").Return(nil, domain.ErrNotFound)

	reconciler := application.NewReconciler(repo)
	headers := map[string]interface{}{ordermsg.HeaderIdempotencyKey: "K3"}
	err := reconciler.HandleMessage(context.Background(), newMessage([]byte(`not json`), headers))

	require.NoError(t, err)
	repo.AssertNotCalled(t, "SaveNew", mock.Anything, mock.Anything)
}
