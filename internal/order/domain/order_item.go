package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// OrderItem is a line item owned exclusively by an Order. It carries no
// back-reference to its owner; the foreign key is reattached only at the
// persistence boundary (spec §9, "Bidirectional order↔item graph").
type OrderItem struct {
	id        string
	productID string
	quantity  int
	price     decimal.Decimal
}

// NewOrderItem validates and builds an OrderItem from request fields.
// id is assigned by the repository on first persistence; callers building
// an item from an inbound request pass an empty id.
func NewOrderItem(id, productID string, quantity int, price decimal.Decimal) (*OrderItem, error) {
	if productID == "" {
		return nil, errors.New("productId cannot be empty")
	}
	if quantity < 1 {
		return nil, errors.New("quantity must be >= 1")
	}
	if price.LessThan(decimal.NewFromFloat(0.01)) {
		return nil, errors.New("price must be >= 0.01")
	}
	return &OrderItem{
		id:        id,
		productID: productID,
		quantity:  quantity,
		price:     price.Round(2),
	}, nil
}

func (i *OrderItem) ID() string              { return i.id }
func (i *OrderItem) ProductID() string       { return i.productID }
func (i *OrderItem) Quantity() int           { return i.quantity }
func (i *OrderItem) Price() decimal.Decimal  { return i.price }

// SetID is used by the repository once it has minted a UUID for the item.
func (i *OrderItem) SetID(id string) { i.id = id }

// Subtotal is price * quantity with half-up rounding to scale 2.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.price.Mul(decimal.NewFromInt(int64(i.quantity))).Round(2)
}
