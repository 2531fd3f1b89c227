package cart_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/cart"
	"shopfront/internal/domain"
)

func product(id, price string, stock int) domain.Product {
	return domain.Product{ID: id, Name: "Item " + id, Price: decimal.RequireFromString(price), Stock: stock}
}

func TestAdd_InsertsThenIncrementsUpToStock(t *testing.T) {
	c := cart.New()
	p := product("p1", "10", 2)

	require.NoError(t, c.Add(p))
	assert.Equal(t, 1, c.Quantity("p1"))
	require.NoError(t, c.Add(p))
	require.NoError(t, c.Add(p))
	assert.Equal(t, 2, c.Quantity("p1"), "quantity must be clamped to stock")
	assert.Equal(t, 1, c.Len())
}

func TestAdd_OutOfStockRejected(t *testing.T) {
	c := cart.New()
	err := c.Add(product("p1", "10", 0))
	assert.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Equal(t, 0, c.Len())
}

func TestAdd_RefreshesSnapshotAndReclamps(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Add(product("p1", "10", 5)))
	c.UpdateQuantity("p1", 4)

	// stock dropped to 2 since the line was added
	require.NoError(t, c.Add(product("p1", "12", 2)))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].Product.Price.Equal(decimal.NewFromInt(12)))
}

func TestUpdateQuantity(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Add(product("p1", "10", 3)))

	c.UpdateQuantity("p1", 10)
	assert.Equal(t, 3, c.Quantity("p1"))

	c.UpdateQuantity("p1", 2)
	assert.Equal(t, 2, c.Quantity("p1"))

	c.UpdateQuantity("p1", 0)
	assert.False(t, c.Contains("p1"))

	// unknown id is a no-op
	c.UpdateQuantity("nope", 2)
	assert.Equal(t, 0, c.Len())
}

func TestUpdateQuantity_NegativeRemoves(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Add(product("p1", "10", 3)))
	c.UpdateQuantity("p1", -4)
	assert.False(t, c.Contains("p1"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Add(product("p1", "10", 3)))
	c.Remove("p1")
	c.Remove("p1")
	assert.Equal(t, 0, c.Len())
}

func TestInsertionOrder(t *testing.T) {
	c := cart.New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.Add(product(id, "1", 9)))
	}
	c.Remove("a")
	require.NoError(t, c.Add(product("a", "1", 9)))
	require.NoError(t, c.Add(product("b", "1", 9)))

	var ids []string
	for _, it := range c.Items() {
		ids = append(ids, it.Product.ID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestDerivedTotals(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Add(product("a", "19.99", 5)))
	require.NoError(t, c.Add(product("b", "5.01", 5)))
	c.UpdateQuantity("a", 2)

	assert.Equal(t, 3, c.ItemCount())
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("44.99")), c.Subtotal().String())

	c.Clear()
	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, c.Subtotal().IsZero())
}

// Random walks over the mutation API must never leave a line outside [1, stock] and the
// subtotal must always match the lines.
func TestInvariantsUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	catalog := []domain.Product{
		product("a", "3.50", 0),
		product("b", "10", 1),
		product("c", "0.99", 4),
		product("d", "120", 7),
	}
	c := cart.New()
	for i := 0; i < 2000; i++ {
		p := catalog[rng.Intn(len(catalog))]
		switch rng.Intn(4) {
		case 0, 1:
			_ = c.Add(p)
		case 2:
			c.UpdateQuantity(p.ID, rng.Intn(12)-3)
		case 3:
			c.Remove(p.ID)
		}

		sum := decimal.Zero
		for _, it := range c.Items() {
			require.GreaterOrEqual(t, it.Quantity, 1)
			require.LessOrEqual(t, it.Quantity, it.Product.Stock)
			sum = sum.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		require.True(t, sum.Equal(c.Subtotal()))
	}
}

func TestSubscribeNotifiesOnChangeOnly(t *testing.T) {
	c := cart.New()
	calls := 0
	unsub := c.Subscribe(func(*cart.Cart) { calls++ })

	require.NoError(t, c.Add(product("p1", "10", 1)))
	require.NoError(t, c.Add(product("p1", "10", 1))) // clamped, nothing changed
	c.UpdateQuantity("p1", 1)                         // same quantity
	c.Remove("missing")
	assert.Equal(t, 1, calls)

	c.Clear()
	assert.Equal(t, 2, calls)

	unsub()
	require.NoError(t, c.Add(product("p2", "1", 1)))
	assert.Equal(t, 2, calls)
}

func TestFromItemsRepairsLines(t *testing.T) {
	c := cart.FromItems([]cart.Item{
		{Product: product("a", "1", 2), Quantity: 5},
		{Product: product("b", "1", 2), Quantity: 0},
		{Product: product("a", "1", 2), Quantity: 1},
		{Product: product("c", "1", 0), Quantity: 1},
	})
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Quantity("a"))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := cart.NewMemoryStore()

	c, err := s.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Add(product("a", "2.50", 3)))
	require.NoError(t, s.Save(ctx, "sid-1", c))

	other, err := s.Load(ctx, "sid-2")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len(), "carts are scoped to their session")

	again, err := s.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Quantity("a"))

	require.NoError(t, s.Delete(ctx, "sid-1"))
	again, err = s.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Len())
}
