// Package pricing derives shipping, tax and grand total from a cart subtotal.
package pricing

import (
	"github.com/shopspring/decimal"

	"shopfront/internal/cart"
)

// Rules are business constants; see config for the environment overrides.
type Rules struct {
	FreeShippingOver decimal.Decimal
	ShippingFlat     decimal.Decimal
	TaxRate          decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		FreeShippingOver: decimal.NewFromInt(100),
		ShippingFlat:     decimal.RequireFromString("9.99"),
		TaxRate:          decimal.RequireFromString("0.08"),
	}
}

type Totals struct {
	ItemCount int
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	// FreeShippingGap is how much more the customer must spend to stop paying shipping.
	// Zero once the subtotal reaches the threshold.
	FreeShippingGap decimal.Decimal
}

func (t Totals) FreeShipping() bool { return t.Shipping.IsZero() }

// Compute applies the rules to a subtotal. Shipping is waived only strictly above
// FreeShippingOver. Tax is kept at full precision; round at presentation time.
func (r Rules) Compute(subtotal decimal.Decimal, itemCount int) Totals {
	shipping := r.ShippingFlat
	if subtotal.GreaterThan(r.FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(r.TaxRate)
	gap := decimal.Zero
	if subtotal.LessThan(r.FreeShippingOver) {
		gap = r.FreeShippingOver.Sub(subtotal)
	}
	return Totals{
		ItemCount:       itemCount,
		Subtotal:        subtotal,
		Shipping:        shipping,
		Tax:             tax,
		Total:           subtotal.Add(shipping).Add(tax),
		FreeShippingGap: gap,
	}
}

// ForCart is Compute over the cart's current contents.
func (r Rules) ForCart(c *cart.Cart) Totals {
	return r.Compute(c.Subtotal(), c.ItemCount())
}

// Tracker keeps totals current for one cart by recomputing on every change.
type Tracker struct {
	rules  Rules
	totals Totals
	stop   func()
}

func Track(c *cart.Cart, r Rules) *Tracker {
	t := &Tracker{rules: r, totals: r.ForCart(c)}
	t.stop = c.Subscribe(func(c *cart.Cart) {
		t.totals = t.rules.ForCart(c)
	})
	return t
}

func (t *Tracker) Totals() Totals { return t.totals }

func (t *Tracker) Stop() { t.stop() }
