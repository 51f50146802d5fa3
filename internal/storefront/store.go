// Package storefront holds the session state of a shopper: catalog slice, cart,
// wishlist, comparison tray, orders, reviews, notifications and preferences.
// All mutation goes through Store methods; durable slices are written to the
// persistence adapter on every change and observers are told through Subscribe.
package storefront

import (
	"context"
	"sync"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/persistence"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Gateway is the data source the store reads from and writes through
type Gateway interface {
	ListProducts(ctx context.Context, query, category string) ([]models.Product, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Signup(ctx context.Context, name, email, password string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error)
	PlaceOrder(ctx context.Context, userID string, items []models.CartItem, total float64, address, key string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	SetAuthToken(token string)
	IsMock() bool
}

// Phase is the store lifecycle
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	}
	return "uninitialized"
}

// Limits on bounded slices
const (
	CompareLimit        = 2
	RecentlyViewedLimit = 8
)

// DefaultNotificationTTL is how long a notification stays visible
const DefaultNotificationTTL = 5 * time.Second

// Options tunes a Store
type Options struct {
	NotificationTTL time.Duration
}

// State is a point-in-time copy of the store. Mutating it does not affect the store.
type State struct {
	Phase          Phase
	Loading        bool
	Mock           bool
	Products       []models.Product
	Cart           []models.CartItem
	Wishlist       []string
	Compare        []string
	User           *models.User
	Orders         []models.Order
	Reviews        []models.Review
	Notifications  []models.Notification
	RecentlyViewed []string
	ActiveCoupon   *models.Coupon
	Locale         string
}

// Store is the single owner of session state
type Store struct {
	gateway Gateway
	durable *persistence.Adapter
	ttl     time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	timers   map[string]*time.Timer
	subs     map[int]func(State)
	nextSub  int
	initOnce sync.Once
	closed   bool

	// checkoutKey is the idempotency key of the pending checkout
	checkoutKey string

	// version counts state changes under mu; pubMu serializes delivery and
	// guards delivered, the newest version handed to subscribers
	version   uint64
	pubMu     sync.Mutex
	delivered uint64
}

// New creates an uninitialized store. durable may be nil, in which case nothing is persisted.
func New(gateway Gateway, durable *persistence.Adapter, opts Options) *Store {
	if opts.NotificationTTL <= 0 {
		opts.NotificationTTL = DefaultNotificationTTL
	}
	return &Store{
		gateway: gateway,
		durable: durable,
		ttl:     opts.NotificationTTL,
		logger:  util.GetLogger(),
		state: State{
			Locale: models.LocaleEN,
		},
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]func(State)),
	}
}

// Init loads the catalog, restores durable slices and, for a restored user, their
// orders. It runs once; later calls return immediately. Fetch failures leave the
// affected slice empty.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		ctx, span := util.StartSpan(ctx, "Store.Init")
		defer span.End()

		s.update(func(st *State) {
			st.Phase = PhaseLoading
			st.Loading = true
		})

		products, err := s.gateway.ListProducts(ctx, "", models.CategoryAll)
		if err != nil {
			s.logger.Error("Failed to load catalog", zap.Error(err))
			products = nil
		}

		user, hasUser := persistence.Load[*models.User](ctx, s.durable, persistence.KeyUser)
		cart, _ := persistence.Load[[]models.CartItem](ctx, s.durable, persistence.KeyCart)
		wishlist, _ := persistence.Load[[]string](ctx, s.durable, persistence.KeyWishlist)
		viewed, _ := persistence.Load[[]string](ctx, s.durable, persistence.KeyRecentlyViewed)
		locale, hasLocale := persistence.Load[string](ctx, s.durable, persistence.KeyLocale)

		var orders []models.Order
		if hasUser && user != nil && user.ID != "" {
			s.gateway.SetAuthToken(user.Token)
			orders, err = s.gateway.ListUserOrders(ctx, user.ID)
			if err != nil {
				s.logger.Warn("Failed to load orders for restored user",
					zap.String("user_id", user.ID),
					zap.Error(err))
				orders = nil
			}
		} else {
			user = nil
		}

		s.update(func(st *State) {
			st.Products = products
			st.Reviews = catalog.SeedReviews()
			st.User = user
			st.Orders = orders
			st.Cart = sanitizeCart(cart)
			st.Wishlist = wishlist
			st.RecentlyViewed = truncate(viewed, RecentlyViewedLimit)
			if hasLocale && validLocale(locale) {
				st.Locale = locale
			}
			st.Phase = PhaseReady
			st.Loading = false
		})

		s.logger.Info("Store initialized",
			zap.Int("products", len(products)),
			zap.Int("cart_items", len(cart)),
			zap.Bool("restored_user", user != nil),
			zap.Bool("mock", s.gateway.IsMock()))
	})
}

// RefreshProducts replaces the catalog slice with a filtered fetch. Other slices are untouched.
func (s *Store) RefreshProducts(ctx context.Context, query, category string) {
	ctx, span := util.StartSpan(ctx, "Store.RefreshProducts")
	defer span.End()

	s.update(func(st *State) { st.Loading = true })

	products, err := s.gateway.ListProducts(ctx, query, category)
	if err != nil {
		s.logger.Error("Failed to refresh catalog",
			zap.String("query", query),
			zap.String("category", category),
			zap.Error(err))
	}

	s.update(func(st *State) {
		if err == nil {
			st.Products = products
		}
		st.Loading = false
	})
}

// State returns a deep copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe registers fn to receive a copy of the state after every change.
// Deliveries are serialized and never go back in time: a snapshot older than
// one already delivered is dropped. fn may read State but must not mutate the
// store. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close cancels pending notification expiries
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// update applies fn under mu, then publishes the versioned result under pubMu.
// mu is released first so a subscriber can call State during delivery.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.version++
	version := s.version
	snap := s.snapshot()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, sub := range subs {
		sub(snap)
	}
}

// snapshot must be called with mu held
func (s *Store) snapshot() State {
	st := s.state
	st.Mock = s.gateway.IsMock()
	st.Products = cloneProducts(s.state.Products)
	st.Cart = models.CloneItems(s.state.Cart)
	st.Wishlist = cloneStrings(s.state.Wishlist)
	st.Compare = cloneStrings(s.state.Compare)
	st.RecentlyViewed = cloneStrings(s.state.RecentlyViewed)
	st.Reviews = append([]models.Review(nil), s.state.Reviews...)
	st.Notifications = append([]models.Notification(nil), s.state.Notifications...)
	if s.state.User != nil {
		u := *s.state.User
		st.User = &u
	}
	if s.state.ActiveCoupon != nil {
		c := *s.state.ActiveCoupon
		st.ActiveCoupon = &c
	}
	if s.state.Orders != nil {
		st.Orders = make([]models.Order, len(s.state.Orders))
		for i, o := range s.state.Orders {
			st.Orders[i] = models.CloneOrder(o)
		}
	}
	return st
}

// persist writes a durable slice; must be called with mu held so writes keep mutation order
func (s *Store) persist(key string, value any) {
	s.durable.Save(context.Background(), key, value)
}

func (s *Store) findProduct(id string) (models.Product, bool) {
	for _, p := range s.state.Products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func validLocale(l string) bool {
	return l == models.LocaleEN || l == models.LocaleHI
}

func sanitizeCart(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		out = append(out, it)
	}
	return out
}

func truncate(ids []string, n int) []string {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneProducts(in []models.Product) []models.Product {
	if in == nil {
		return nil
	}
	out := make([]models.Product, len(in))
	for i, p := range in {
		out[i] = models.CloneProduct(p)
	}
	return out
}
