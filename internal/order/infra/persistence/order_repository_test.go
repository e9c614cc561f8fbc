package persistence_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/persistence"
	dbtest "github.com/fqueis/moutsti-order-service/shared/test"
)

func newOrder(t *testing.T) *domain.Order {
	t.Helper()
	price, err := decimal.NewFromString("10.00")
	require.NoError(t, err)
	item, err := domain.NewOrderItem("", "P1", 2, price)
	require.NoError(t, err)
	order, err := domain.NewReceivedOrder("K1", []*domain.OrderItem{item})
	require.NoError(t, err)
	require.NoError(t, order.MarkProcessing())
	order.ComputeTotal()
	require.NoError(t, order.MarkProcessed())
	return order
}

func TestOrderRepository_SaveNew_WrapsUniqueViolationAsDuplicateKey(t *testing.T) {
	tx := dbtest.NewMockTransaction()
	tx.On("ExecContext", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return((*dbtest.MockResult)(nil), errors.New("pq: duplicate key value violates unique constraint \"idx_orders_idempotency_key\""))

	repo := persistence.NewOrderRepository(tx)
	err := repo.SaveNew(context.Background(), newOrder(t))

	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	tx.AssertExpectations(t)
}

func TestOrderRepository_SaveNew_WrapsOtherErrorsAsTransient(t *testing.T) {
	tx := dbtest.NewMockTransaction()
	tx.On("ExecContext", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return((*dbtest.MockResult)(nil), errors.New("connection refused"))

	repo := persistence.NewOrderRepository(tx)
	err := repo.SaveNew(context.Background(), newOrder(t))

	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestOrderRepository_SaveNew_PersistsOrderThenItems(t *testing.T) {
	tx := dbtest.NewMockTransaction()
	order := newOrder(t)

	orderInsert := &dbtest.MockResult{Rows: 1}
	itemInsert := &dbtest.MockResult{Rows: 1}

	tx.On("ExecContext", mock.Anything, mock.MatchedBy(func(q string) bool { return strings.Contains(q, "INSERT INTO orders") }), mock.Anything).
		Return(orderInsert, nil).Once()
	tx.On("ExecContext", mock.Anything, mock.MatchedBy(func(q string) bool { return strings.Contains(q, "INSERT INTO order_items") }), mock.Anything).
		Return(itemInsert, nil).Once()

	repo := persistence.NewOrderRepository(tx)
	err := repo.SaveNew(context.Background(), order)

	require.NoError(t, err)
	tx.AssertExpectations(t)
}

func TestOrderRepository_Update_StaleVersionYieldsNotFound(t *testing.T) {
	tx := dbtest.NewMockTransaction()
	order := newOrder(t)
	order.IncrementVersion()

	tx.On("ExecContext", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&dbtest.MockResult{Rows: 0}, nil)

	repo := persistence.NewOrderRepository(tx)
	err := repo.Update(context.Background(), order)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
