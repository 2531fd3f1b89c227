package services

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/checkout"
	"shopfront/internal/payment"
)

// ErrCartNotCleared accompanies a successful result whose stored cart could not be
// emptied. The order itself went through.
var ErrCartNotCleared = errors.New("order placed but cart was not cleared")

type CheckoutService struct {
	Carts *CartService
	Flows *checkout.Registry
}

func NewCheckoutService(carts *CartService, gw checkout.Gateway) *CheckoutService {
	return &CheckoutService{Carts: carts, Flows: checkout.NewRegistry(gw)}
}

// Submit runs one checkout attempt for the session. A second call while one is running
// returns checkout.ErrInFlight. On success only the lines that were sent to the API leave
// the stored cart.
func (s *CheckoutService) Submit(ctx context.Context, sessionID string, d payment.Details) (checkout.Result, error) {
	flow, release := s.Flows.Acquire(sessionID)
	defer release()

	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return checkout.Result{}, err
	}
	bought := c.Lines()
	res, err := flow.Submit(ctx, c, d)
	if err != nil || res.State != checkout.Succeeded {
		return res, err
	}
	if err := s.Carts.Settle(ctx, sessionID, bought); err != nil {
		return res, fmt.Errorf("%w: %v", ErrCartNotCleared, err)
	}
	return res, nil
}
