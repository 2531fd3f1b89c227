// Package cart holds the session-scoped shopping cart: an insertion-ordered set of
// (product, quantity) lines whose quantities always stay within [1, stock].
package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"shopfront/internal/domain"
)

var ErrOutOfStock = errors.New("product is out of stock")

type Item struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AtMax reports whether another unit would exceed the product's stock.
func (i Item) AtMax() bool { return i.Quantity >= i.Product.Stock }

// Cart is not safe for concurrent use; callers own a cart per session and serialise
// access to it (see services.CartService).
type Cart struct {
	order     []string
	items     map[string]*Item
	listeners map[int]func(*Cart)
	nextSub   int
}

func New() *Cart {
	return &Cart{items: map[string]*Item{}}
}

// FromItems rebuilds a cart from stored lines. Lines that would break an invariant are
// clamped or dropped; a repeated product id keeps its first position.
func FromItems(lines []Item) *Cart {
	c := New()
	for _, l := range lines {
		if l.Product.ID == "" || l.Quantity < 1 || c.Contains(l.Product.ID) {
			continue
		}
		q := clamp(l.Quantity, l.Product.Stock)
		if q < 1 {
			continue
		}
		it := Item{Product: l.Product, Quantity: q}
		c.items[l.Product.ID] = &it
		c.order = append(c.order, l.Product.ID)
	}
	return c
}

// Add puts one unit of p in the cart. An existing line takes p as its new product
// snapshot and grows by one, never past p.Stock.
func (c *Cart) Add(p domain.Product) error {
	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	if it, ok := c.items[p.ID]; ok {
		before := *it
		it.Product = p
		it.Quantity = clamp(it.Quantity+1, p.Stock)
		if before.Quantity != it.Quantity || !sameProduct(before.Product, p) {
			c.notify()
		}
		return nil
	}
	c.items[p.ID] = &Item{Product: p, Quantity: 1}
	c.order = append(c.order, p.ID)
	c.notify()
	return nil
}

// UpdateQuantity sets the quantity of an existing line. qty <= 0 removes the line;
// anything else is clamped to [1, stock]. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(productID string, qty int) {
	it, ok := c.items[productID]
	if !ok {
		return
	}
	if qty <= 0 || it.Product.Stock < 1 {
		c.Remove(productID)
		return
	}
	q := clamp(qty, it.Product.Stock)
	if q == it.Quantity {
		return
	}
	it.Quantity = q
	c.notify()
}

func (c *Cart) Remove(productID string) {
	if _, ok := c.items[productID]; !ok {
		return
	}
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.notify()
}

func (c *Cart) Clear() {
	if len(c.order) == 0 {
		return
	}
	c.items = map[string]*Item{}
	c.order = nil
	c.notify()
}

// Items returns copies of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

func (c *Cart) Len() int { return len(c.order) }

func (c *Cart) Contains(productID string) bool {
	_, ok := c.items[productID]
	return ok
}

func (c *Cart) Quantity(productID string) int {
	if it, ok := c.items[productID]; ok {
		return it.Quantity
	}
	return 0
}

// ItemCount is the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, id := range c.order {
		sum = sum.Add(c.items[id].Subtotal())
	}
	return sum
}

// Lines projects the cart into checkout request lines.
func (c *Cart) Lines() []domain.CheckoutItem {
	out := make([]domain.CheckoutItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, domain.CheckoutItem{ProductID: id, Quantity: c.items[id].Quantity})
	}
	return out
}

// Subscribe registers fn to run after every mutation that changed the cart.
// Listeners run synchronously in subscription order.
func (c *Cart) Subscribe(fn func(*Cart)) (unsubscribe func()) {
	if c.listeners == nil {
		c.listeners = map[int]func(*Cart){}
	}
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

func (c *Cart) notify() {
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.listeners[id]; ok {
			fn(c)
		}
	}
}

func clamp(q, stock int) int {
	if q > stock {
		return stock
	}
	return q
}

func sameProduct(a, b domain.Product) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Price.Equal(b.Price) &&
		a.Image == b.Image && a.Description == b.Description && a.Stock == b.Stock
}
