package services

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/domain"
)

var ErrNotRefundable = errors.New("only paid orders can be refunded")

// OrderAPI is the order side of the commerce API.
type OrderAPI interface {
	Order(ctx context.Context, orderID string) (domain.Order, error)
	AdminOrders(ctx context.Context) ([]domain.OrderSummary, error)
	AdminOrder(ctx context.Context, id string) (domain.OrderDetail, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.OrderDetail, error)
}

type OrderService struct {
	API OrderAPI
}

func NewOrderService(api OrderAPI) *OrderService {
	return &OrderService{API: api}
}

// Confirmation fetches the customer-facing view of a just-placed order.
func (s *OrderService) Confirmation(ctx context.Context, orderID string) (domain.Order, error) {
	return s.API.Order(ctx, orderID)
}

func (s *OrderService) List(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.API.AdminOrders(ctx)
}

func (s *OrderService) Detail(ctx context.Context, id string) (domain.OrderDetail, error) {
	return s.API.AdminOrder(ctx, id)
}

// Refund marks a paid order refunded. The current status is re-read first so a stale
// admin page cannot refund a failed or already refunded order.
func (s *OrderService) Refund(ctx context.Context, id string) (domain.OrderDetail, error) {
	o, err := s.API.AdminOrder(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if !o.Refundable() {
		return o, fmt.Errorf("%w: order %s is %s", ErrNotRefundable, o.ShortID(), o.Status)
	}
	updated, err := s.API.UpdateOrderStatus(ctx, id, domain.StatusRefunded)
	if err != nil {
		return o, err
	}
	if updated.ID == "" {
		// API acknowledged without a body
		o.Status = domain.StatusRefunded
		return o, nil
	}
	return updated, nil
}
