package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/persistence"
)

// MockResultLimit caps local catalog searches to simulate pagination
const MockResultLimit = 50

type mockUser struct {
	models.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

type mockSnapshot struct {
	Products []models.Product `json:"products"`
	Users    []mockUser       `json:"users"`
	Orders   []models.Order   `json:"orders"`
	// OrderKeys maps an idempotency key to the order it created
	OrderKeys map[string]string `json:"orderKeys,omitempty"`
}

// MockDatabase is the local stand-in for the remote API. Every mutation is written
// through the persistence adapter so it survives a restart.
type MockDatabase struct {
	mu       sync.Mutex
	products []models.Product
	users    []mockUser
	orders   []models.Order
	keys     map[string]string
	store    *persistence.Adapter
	hasher   *auth.PasswordHasher
}

// NewMockDatabase restores the mock state from store, seeding a fresh catalog when none was saved
func NewMockDatabase(ctx context.Context, store *persistence.Adapter, hasher *auth.PasswordHasher) *MockDatabase {
	db := &MockDatabase{store: store, hasher: hasher, keys: make(map[string]string)}

	if snap, ok := persistence.Load[mockSnapshot](ctx, store, persistence.KeyMockDatabase); ok {
		db.products = snap.Products
		db.users = snap.Users
		db.orders = snap.Orders
		for k, id := range snap.OrderKeys {
			db.keys[k] = id
		}
	}
	if len(db.products) == 0 {
		db.products = catalog.Generate(catalog.DefaultSize, nil)
		db.save(ctx)
	}
	return db
}

// save must be called with mu held (or before the db is shared)
func (db *MockDatabase) save(ctx context.Context) {
	products := db.products
	if len(products) > persistence.CatalogCacheLimit {
		products = products[:persistence.CatalogCacheLimit]
	}
	db.store.Save(ctx, persistence.KeyMockDatabase, mockSnapshot{
		Products:  products,
		Users:     db.users,
		Orders:    db.orders,
		OrderKeys: db.keys,
	})
}

func (db *MockDatabase) ListProducts(_ context.Context, query, category string) ([]models.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return catalog.Filter(db.products, query, category, MockResultLimit), nil
}

func (db *MockDatabase) GetProduct(_ context.Context, id string) (*models.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, p := range db.products {
		if p.ID == id {
			cp := models.CloneProduct(p)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (db *MockDatabase) findUser(email string) int {
	for i, u := range db.users {
		if u.Email == email {
			return i
		}
	}
	return -1
}

// Login authenticates an existing account. Accounts without a password hash
// (provider accounts) are matched by email alone.
func (db *MockDatabase) Login(_ context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUser(email)
	if i < 0 {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	u := db.users[i]
	if u.PasswordHash != "" && !db.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrUnauthorized
	}
	user := u.User
	return &user, nil
}

func (db *MockDatabase) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var hash string
	if password != "" {
		h, err := db.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hash = h
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.findUser(email) >= 0 {
		return nil, fmt.Errorf("user %s: %w", email, ErrConflict)
	}
	if strings.TrimSpace(name) == "" {
		name = models.NameFromEmail(email)
	}
	u := mockUser{
		User: models.User{
			ID:       models.NewUserID(),
			Name:     name,
			Email:    email,
			Role:     models.RoleForEmail(email),
			Provider: models.ProviderLocal,
		},
		PasswordHash: hash,
	}
	db.users = append(db.users, u)
	db.save(ctx)

	user := u.User
	return &user, nil
}

// LoginWithGoogle upserts a provider-tagged account
func (db *MockDatabase) LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if i := db.findUser(email); i >= 0 {
		user := db.users[i].User
		return &user, nil
	}
	if strings.TrimSpace(name) == "" {
		name = models.NameFromEmail(email)
	}
	u := mockUser{User: models.User{
		ID:       models.NewUserID(),
		Name:     name,
		Email:    email,
		Role:     models.RoleForEmail(email),
		Provider: models.ProviderGoogle,
	}}
	db.users = append(db.users, u)
	db.save(ctx)

	user := u.User
	return &user, nil
}

// PlaceOrder records an order. A key already bound to an order returns that order.
func (db *MockDatabase) PlaceOrder(ctx context.Context, userID string, items []models.CartItem, total float64, address, key string) (*models.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if id, ok := db.keys[key]; ok && key != "" {
		for _, o := range db.orders {
			if o.ID == id {
				out := models.CloneOrder(o)
				return &out, nil
			}
		}
	}

	order := models.Order{
		ID:              models.NewOrderID(),
		UserID:          userID,
		Items:           models.CloneItems(items),
		Total:           total,
		Status:          models.OrderStatusProcessing,
		Date:            time.Now().UTC(),
		ShippingAddress: address,
	}

	db.orders = append([]models.Order{order}, db.orders...)
	if key != "" {
		db.keys[key] = order.ID
	}
	db.save(ctx)

	out := models.CloneOrder(order)
	return &out, nil
}

// ListOrders returns the orders of userID, or every order when userID is empty, most recent first
func (db *MockDatabase) ListOrders(_ context.Context, userID string) ([]models.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]models.Order, 0)
	for _, o := range db.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, models.CloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// UpdateOrderStatus changes the status of a known order; unknown IDs are ignored
func (db *MockDatabase) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.orders {
		if db.orders[i].ID == id {
			db.orders[i].Status = status
			db.save(ctx)
			return nil
		}
	}
	return nil
}

// SeedCatalog replaces the whole catalog with freshly generated products
func (db *MockDatabase) SeedCatalog(ctx context.Context) (int, error) {
	products := catalog.Generate(catalog.DefaultSize, nil)

	db.mu.Lock()
	defer db.mu.Unlock()

	db.products = products
	db.save(ctx)
	return len(products), nil
}
