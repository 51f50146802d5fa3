package gateway

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/models"
	"storefront/internal/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSearchSemantics(t *testing.T) {
	db := newMock(t, nil)
	ctx := context.Background()

	all, err := db.ListProducts(ctx, "", models.CategoryAll)
	require.NoError(t, err)
	assert.Len(t, all, MockResultLimit)

	books, err := db.ListProducts(ctx, "", "Books")
	require.NoError(t, err)
	for _, p := range books {
		assert.Equal(t, "Books", p.Category)
	}

	premium, err := db.ListProducts(ctx, "PREMIUM", "")
	require.NoError(t, err)
	for _, p := range premium {
		matched := strings.Contains(strings.ToLower(p.Name), "premium")
		for _, tag := range p.Tags {
			matched = matched || strings.Contains(tag, "premium")
		}
		assert.True(t, matched, p.Name)
	}
}

func TestMockGetProduct(t *testing.T) {
	db := newMock(t, nil)

	p, err := db.GetProduct(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)

	_, err = db.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockAuth(t *testing.T) {
	db := newMock(t, nil)
	ctx := context.Background()

	_, err := db.Login(ctx, "ghost@example.com", "")
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := db.Signup(ctx, "", "Ann@Example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, "ann", u.Name)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, strings.HasPrefix(u.ID, "u-"))

	_, err = db.Signup(ctx, "Ann", "ann@example.com", "other")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = db.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	again, err := db.Login(ctx, "ANN@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	admin, err := db.LoginWithGoogle(ctx, "admin@novamart.com", "Boss")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, models.ProviderGoogle, admin.Provider)

	same, err := db.LoginWithGoogle(ctx, "admin@novamart.com", "Boss")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, same.ID)

	// provider accounts have no password to check
	viaLogin, err := db.Login(ctx, "admin@novamart.com", "")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, viaLogin.ID)
}

func TestMockOrdersPersistAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewAdapter(persistence.NewMemoryKV())
	db := newMock(t, store)

	items := []models.CartItem{{Product: models.Product{ID: "1", Price: 20}, Quantity: 2}}
	order, err := db.PlaceOrder(ctx, "u-1", items, 40, "1 Main St", "")
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-[0-9A-Z]{8}$`, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	require.NoError(t, db.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped))
	require.NoError(t, db.UpdateOrderStatus(ctx, "ORD-UNKNOWN", models.OrderStatusShipped))

	restarted := newMock(t, store)
	orders, err := restarted.ListOrders(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.Equal(t, models.OrderStatusShipped, orders[0].Status)

	others, err := restarted.ListOrders(ctx, "u-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestMockSnapshotCapsCatalog(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewAdapter(persistence.NewMemoryKV())
	newMock(t, store)

	snap, ok := persistence.Load[mockSnapshot](ctx, store, persistence.KeyMockDatabase)
	require.True(t, ok)
	assert.Len(t, snap.Products, persistence.CatalogCacheLimit)
}

func TestMockOrdersMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	db := newMock(t, nil)

	first, err := db.PlaceOrder(ctx, "u-1", nil, 1, "", "")
	require.NoError(t, err)
	second, err := db.PlaceOrder(ctx, "u-1", nil, 2, "", "")
	require.NoError(t, err)

	orders, err := db.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestMockSeedCatalog(t *testing.T) {
	db := newMock(t, nil)
	n, err := db.SeedCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
}

func TestMockOrderKeyReturnsExistingOrder(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewAdapter(persistence.NewMemoryKV())
	db := newMock(t, store)

	first, err := db.PlaceOrder(ctx, "u-1", nil, 5, "", "k-1")
	require.NoError(t, err)
	again, err := db.PlaceOrder(ctx, "u-1", nil, 5, "", "k-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	restarted := newMock(t, store)
	replayed, err := restarted.PlaceOrder(ctx, "u-1", nil, 5, "", "k-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, replayed.ID)

	orders, err := restarted.ListOrders(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
