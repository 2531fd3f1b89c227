package repos_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/cart"
	"shopfront/internal/domain"
	"shopfront/internal/repos"
)

func openDB(t *testing.T) *repos.CartRepo {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repos.NewCartRepo(db)
}

func product(id, price string, stock int) domain.Product {
	return domain.Product{ID: id, Name: "Item " + id, Price: decimal.RequireFromString(price), Image: "/img/" + id + ".png", Stock: stock}
}

func TestCartRepo_RoundTripKeepsOrderAndSnapshot(t *testing.T) {
	r := openDB(t)
	ctx := context.Background()

	c := cart.New()
	require.NoError(t, c.Add(product("b", "19.99", 3)))
	require.NoError(t, c.Add(product("a", "5.25", 10)))
	c.UpdateQuantity("a", 4)
	require.NoError(t, r.Save(ctx, "sid-1", c))

	got, err := r.Load(ctx, "sid-1")
	require.NoError(t, err)
	items := got.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Product.ID)
	assert.Equal(t, "a", items[1].Product.ID)
	assert.Equal(t, 4, items[1].Quantity)
	assert.True(t, items[0].Product.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "/img/b.png", items[0].Product.Image)
	assert.True(t, got.Subtotal().Equal(c.Subtotal()))
}

func TestCartRepo_SaveReplacesLines(t *testing.T) {
	r := openDB(t)
	ctx := context.Background()

	c := cart.New()
	require.NoError(t, c.Add(product("a", "1", 5)))
	require.NoError(t, c.Add(product("b", "2", 5)))
	require.NoError(t, r.Save(ctx, "sid", c))

	c.Remove("a")
	require.NoError(t, r.Save(ctx, "sid", c))

	got, err := r.Load(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, got.Contains("a"))
	assert.True(t, got.Contains("b"))
}

func TestCartRepo_EmptyCartAndDelete(t *testing.T) {
	r := openDB(t)
	ctx := context.Background()

	got, err := r.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	c := cart.New()
	require.NoError(t, c.Add(product("a", "1", 5)))
	require.NoError(t, r.Save(ctx, "sid", c))
	require.NoError(t, r.Save(ctx, "other", c))

	c.Clear()
	require.NoError(t, r.Save(ctx, "sid", c))
	got, err = r.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	require.NoError(t, r.Delete(ctx, "other"))
	got, err = r.Load(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestSeedAdmin_IdempotentAndSessions(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, repos.SeedAdmin(db, "admin@shopfront.test", "Passw0rd!"))
	require.NoError(t, repos.SeedAdmin(db, "admin@shopfront.test", "Other1!xx"))

	users := repos.NewUserRepo(db)
	u, err := users.ByEmail("ADMIN@shopfront.test")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	require.NoError(t, users.BindSession("sid-1", u.ID))
	su, err := users.SessionUser("sid-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, su.ID)

	require.NoError(t, users.UnbindSession("sid-1"))
	_, err = users.SessionUser("sid-1")
	assert.Error(t, err)
}
