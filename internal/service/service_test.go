package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory stand-in for store.Store
type fakeRepo struct {
	mu          sync.Mutex
	products    []models.Product
	listCalls   int
	users       map[string]*store.UserRecord
	orders      []models.Order
	orderByKey  map[string]string
	failCreate  error
	replaceRuns int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      map[string]*store.UserRecord{},
		orderByKey: map[string]string{},
	}
}

func (r *fakeRepo) ListProducts(_ context.Context, query, category string, limit int) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []models.Product
	for _, p := range r.products {
		if category != "" && category != models.CategoryAll && p.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.products {
		if r.products[i].ID == id {
			p := r.products[i]
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) ReplaceCatalog(_ context.Context, products []models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceRuns++
	r.products = products
	return nil
}

func (r *fakeRepo) CountProducts(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products), nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*store.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) CreateUser(_ context.Context, u *store.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return store.ErrConflict
	}
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *fakeRepo) UpsertProviderUser(_ context.Context, u *store.UserRecord) (*store.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.Email]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *u
	r.users[u.Email] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) CreateOrder(_ context.Context, o *models.Order, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	if key != "" {
		if _, ok := r.orderByKey[key]; ok {
			return store.ErrConflict
		}
		r.orderByKey[key] = o.ID
	}
	r.orders = append(r.orders, models.CloneOrder(*o))
	return nil
}

func (r *fakeRepo) find(id string) *models.Order {
	for i := range r.orders {
		if r.orders[i].ID == id {
			return &r.orders[i]
		}
	}
	return nil
}

func (r *fakeRepo) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o := r.find(id); o != nil {
		cp := models.CloneOrder(*o)
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.orderByKey[key]
	if !ok {
		return nil, nil
	}
	cp := models.CloneOrder(*r.find(id))
	return &cp, nil
}

func (r *fakeRepo) sorted(filter func(models.Order) bool) []models.Order {
	var out []models.Order
	for _, o := range r.orders {
		if filter(o) {
			out = append(out, models.CloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (r *fakeRepo) GetOrdersByUserID(_ context.Context, userID string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r *fakeRepo) ListOrders(context.Context) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(models.Order) bool { return true }), nil
}

func (r *fakeRepo) UpdateOrderStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.find(id)
	if o == nil {
		return store.ErrNotFound
	}
	o.Status = status
	return nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
	seeded  []*models.CatalogSeededEvent
	err     error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

func (p *recordingPublisher) PublishCatalogSeeded(_ context.Context, e *models.CatalogSeededEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeded = append(p.seeded, e)
	return p.err
}

func setupCache(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleItems() []models.CartItem {
	return []models.CartItem{
		{Product: models.Product{ID: "p1", Name: "Headphones", Price: 10}, Quantity: 2},
		{Product: models.Product{ID: "p2", Name: "Shirt", Price: 20}, Quantity: 1},
	}
}

func requireEventIDs(t *testing.T, ids ...string) {
	t.Helper()
	seen := map[string]bool{}
	for _, id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate event id %s", id)
		seen[id] = true
	}
}
