package persistence

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
)

// ToOrderDTO converts a domain Order (excluding items) to its row shape.
func ToOrderDTO(order *domain.Order) *OrderDTO {
	return &OrderDTO{
		ID:             order.ID(),
		IdempotencyKey: order.IdempotencyKey(),
		Status:         order.Status().String(),
		Total:          order.Total().StringFixed(2),
		FailureReason:  order.FailureReason(),
		CreatedAt:      order.CreatedAt(),
		UpdatedAt:      order.UpdatedAt(),
		Version:        order.Version(),
	}
}

// ToItemDTOs converts an order's items to their row shape, attaching the
// foreign key that the in-memory aggregate does not carry (spec §9,
// "Bidirectional order↔item graph").
func ToItemDTOs(order *domain.Order) []*OrderItemDTO {
	dtos := make([]*OrderItemDTO, 0, len(order.Items()))
	for _, item := range order.Items() {
		dtos = append(dtos, &OrderItemDTO{
			ID:        item.ID(),
			OrderID:   order.ID(),
			ProductID: item.ProductID(),
			Quantity:  item.Quantity(),
			Price:     item.Price().StringFixed(2),
		})
	}
	return dtos
}

// ToDomain reassembles a domain Order from its persisted rows.
func ToDomain(orderDTO *OrderDTO, itemDTOs []*OrderItemDTO) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(orderDTO.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid order status in store: %w", err)
	}

	total, err := decimal.NewFromString(orderDTO.Total)
	if err != nil {
		return nil, fmt.Errorf("invalid order total in store: %w", err)
	}

	items := make([]*domain.OrderItem, 0, len(itemDTOs))
	for _, itemDTO := range itemDTOs {
		price, err := decimal.NewFromString(itemDTO.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid item price in store: %w", err)
		}
		item, err := domain.NewOrderItem(itemDTO.ID, itemDTO.ProductID, itemDTO.Quantity, price)
		if err != nil {
			return nil, fmt.Errorf("invalid item in store: %w", err)
		}
		items = append(items, item)
	}

	return domain.NewOrderFromStore(
		orderDTO.ID,
		orderDTO.IdempotencyKey,
		status,
		total,
		items,
		orderDTO.FailureReason,
		orderDTO.CreatedAt,
		orderDTO.UpdatedAt,
		orderDTO.Version,
	), nil
}
