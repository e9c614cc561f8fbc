package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
)

func TestNewOrderItem_ValidatesProductIDQuantityAndPrice(t *testing.T) {
	ten := decimal.RequireFromString("10.00")

	_, err := domain.NewOrderItem("", "", 1, ten)
	assert.Error(t, err, "productId must be non-blank")

	_, err = domain.NewOrderItem("", "P1", 0, ten)
	assert.Error(t, err, "quantity must be >= 1")

	_, err = domain.NewOrderItem("", "P1", 1, decimal.RequireFromString("0.00"))
	assert.Error(t, err, "price must be >= 0.01")

	item, err := domain.NewOrderItem("", "P1", 1, ten)
	require.NoError(t, err)
	assert.Equal(t, "P1", item.ProductID())
}

func TestOrderItem_Subtotal_RoundsToScale2(t *testing.T) {
	item, err := domain.NewOrderItem("", "P1", 3, decimal.RequireFromString("0.105"))
	require.NoError(t, err)

	subtotal := item.Subtotal()
	assert.True(t, subtotal.Equal(decimal.RequireFromString("0.33")), "got %s", subtotal)
}
