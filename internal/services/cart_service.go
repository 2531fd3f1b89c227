package services

import (
	"context"
	"sync"

	"shopfront/internal/cart"
	"shopfront/internal/domain"
	"shopfront/internal/pricing"
)

// CartService owns the session carts. Every mutation runs load, change, save under a
// per-session lock so concurrent requests from one browser cannot lose updates.
type CartService struct {
	Store    cart.Store
	Products ProductSource
	Rules    pricing.Rules

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewCartService(store cart.Store, products ProductSource, rules pricing.Rules) *CartService {
	return &CartService{Store: store, Products: products, Rules: rules, locks: map[string]*sessionLock{}}
}

type CartView struct {
	Items  []cart.Item
	Totals pricing.Totals
}

func (v CartView) Empty() bool { return len(v.Items) == 0 }

// Quantities maps product id to quantity, for marking in-cart products on listings.
func (v CartView) Quantities() map[string]int {
	out := make(map[string]int, len(v.Items))
	for _, it := range v.Items {
		out[it.Product.ID] = it.Quantity
	}
	return out
}

func (s *CartService) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

// mutate applies fn to the stored cart and saves it unless fn fails.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (CartView, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	c, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	tr := pricing.Track(c, s.Rules)
	defer tr.Stop()

	if err := fn(c); err != nil {
		return CartView{Items: c.Items(), Totals: tr.Totals()}, err
	}
	if err := s.Store.Save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return CartView{Items: c.Items(), Totals: tr.Totals()}, nil
}

func (s *CartService) View(ctx context.Context, sessionID string) (CartView, error) {
	c, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Items: c.Items(), Totals: s.Rules.ForCart(c)}, nil
}

// Load returns a snapshot of the session's cart for a checkout attempt. Changes to the
// snapshot are not saved.
func (s *CartService) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.Store.Load(ctx, sessionID)
}

// Settle takes purchased lines out of the stored cart. Units added after the snapshot
// that went to checkout stay in the cart.
func (s *CartService) Settle(ctx context.Context, sessionID string, bought []domain.CheckoutItem) error {
	unlock := s.lock(sessionID)
	defer unlock()

	c, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, b := range bought {
		c.UpdateQuantity(b.ProductID, c.Quantity(b.ProductID)-b.Quantity)
	}
	if c.Len() == 0 {
		return s.Store.Delete(ctx, sessionID)
	}
	return s.Store.Save(ctx, sessionID, c)
}

// Add puts one unit of the product in the cart, using the API's current price and stock.
func (s *CartService) Add(ctx context.Context, sessionID, productID string) (CartView, error) {
	p, err := getProduct(ctx, s.Products, productID)
	if err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		return c.Add(p)
	})
}

// Update sets a line's quantity; zero or less removes the line.
func (s *CartService) Update(ctx context.Context, sessionID, productID string, qty int) (CartView, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		c.UpdateQuantity(productID, qty)
		return nil
	})
}

func (s *CartService) Remove(ctx context.Context, sessionID, productID string) (CartView, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
}

// Count is the total number of units, for the header badge.
func (s *CartService) Count(ctx context.Context, sessionID string) (int, error) {
	c, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return c.ItemCount(), nil
}
