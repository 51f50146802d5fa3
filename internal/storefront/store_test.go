package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeGateway struct {
	mu          sync.Mutex
	products    []models.Product
	productsErr error
	users       map[string]*models.User
	orders      map[string][]models.Order
	placed      []models.Order
	lastTotal   float64
	listCalls   int
	token       string
	statusErr   error
	placeErr    error
	orderKeys   []string
}

func newFakeGateway(products ...models.Product) *fakeGateway {
	return &fakeGateway{
		products: products,
		users:    map[string]*models.User{},
		orders:   map[string][]models.Order{},
	}
}

func (f *fakeGateway) ListProducts(_ context.Context, _, _ string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	out := make([]models.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeGateway) Login(_ context.Context, email, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeGateway) Signup(_ context.Context, name, email, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, gateway.ErrConflict
	}
	u := &models.User{ID: "u-" + name, Name: name, Email: email, Role: models.RoleUser, Token: "tok-" + name}
	f.users[email] = u
	cp := *u
	return &cp, nil
}

func (f *fakeGateway) LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error) {
	if u, err := f.Login(ctx, email, ""); err == nil {
		return u, nil
	}
	return f.Signup(ctx, name, email, "")
}

func (f *fakeGateway) PlaceOrder(_ context.Context, userID string, items []models.CartItem, total float64, address, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderKeys = append(f.orderKeys, key)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	o := models.Order{
		ID:              models.NewOrderID(),
		UserID:          userID,
		Items:           models.CloneItems(items),
		Total:           total,
		Status:          models.OrderStatusProcessing,
		Date:            time.Now(),
		ShippingAddress: address,
	}
	f.lastTotal = total
	f.placed = append(f.placed, o)
	f.orders[userID] = append([]models.Order{o}, f.orders[userID]...)
	return &o, nil
}

func (f *fakeGateway) ListUserOrders(_ context.Context, userID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Order{}, f.orders[userID]...), nil
}

func (f *fakeGateway) UpdateOrderStatus(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusErr
}

func (f *fakeGateway) SetAuthToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeGateway) IsMock() bool { return false }

var (
	productA = models.Product{ID: "a", Name: "Alpha Lamp", Price: 20, Category: "Home"}
	productB = models.Product{ID: "b", Name: "Beta Mug", Price: 15, Category: "Home"}
)

func newTestStore(t *testing.T, gw Gateway, durable *persistence.Adapter) *Store {
	t.Helper()
	s := New(gw, durable, Options{NotificationTTL: time.Minute})
	t.Cleanup(s.Close)
	s.Init(context.Background())
	return s
}

func notificationTypes(st State) []string {
	out := make([]string, 0, len(st.Notifications))
	for _, n := range st.Notifications {
		out = append(out, n.Type)
	}
	return out
}

func TestInitLoadsCatalogAndBecomesReady(t *testing.T) {
	gw := newFakeGateway(productA, productB)
	s := New(gw, nil, Options{})
	t.Cleanup(s.Close)

	assert.Equal(t, PhaseUninitialized, s.State().Phase)
	s.Init(context.Background())
	s.Init(context.Background())

	st := s.State()
	assert.Equal(t, PhaseReady, st.Phase)
	assert.False(t, st.Loading)
	assert.Len(t, st.Products, 2)
	assert.NotEmpty(t, st.Reviews)
	assert.Equal(t, models.LocaleEN, st.Locale)
	assert.Equal(t, 1, gw.listCalls)
}

func TestInitToleratesCatalogFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.productsErr = errors.New("local store broken")

	s := newTestStore(t, gw, nil)
	st := s.State()
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Empty(t, st.Products)
}

func TestInitRestoresDurableSlices(t *testing.T) {
	ctx := context.Background()
	durable := persistence.NewAdapter(persistence.NewMemoryKV())
	user := &models.User{ID: "u-1", Name: "ann", Email: "ann@example.com", Role: models.RoleUser, Token: "tok"}
	durable.Save(ctx, persistence.KeyUser, user)
	durable.Save(ctx, persistence.KeyCart, []models.CartItem{{Product: productA, Quantity: 3}})
	durable.Save(ctx, persistence.KeyWishlist, []string{"b"})
	durable.Save(ctx, persistence.KeyRecentlyViewed, []string{"b", "a"})
	durable.Save(ctx, persistence.KeyLocale, models.LocaleHI)

	gw := newFakeGateway(productA, productB)
	gw.orders["u-1"] = []models.Order{{ID: "ORD-AAAAAAAA", UserID: "u-1", Total: 5}}

	s := newTestStore(t, gw, durable)
	st := s.State()
	require.NotNil(t, st.User)
	assert.Equal(t, "u-1", st.User.ID)
	require.Len(t, st.Cart, 1)
	assert.Equal(t, 3, st.Cart[0].Quantity)
	assert.Equal(t, []string{"b"}, st.Wishlist)
	assert.Equal(t, []string{"b", "a"}, st.RecentlyViewed)
	assert.Equal(t, models.LocaleHI, st.Locale)
	require.Len(t, st.Orders, 1)
	assert.Equal(t, "tok", gw.token)
}

func TestInitIgnoresCorruptSlice(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, persistence.KeyCart, []byte("{broken")))
	durable := persistence.NewAdapter(kv)
	durable.Save(ctx, persistence.KeyWishlist, []string{"a"})

	s := newTestStore(t, newFakeGateway(productA), durable)
	st := s.State()
	assert.Empty(t, st.Cart)
	assert.Equal(t, []string{"a"}, st.Wishlist)
}

func TestAddToCartTwiceIncrementsQuantity(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), nil)

	s.AddToCart(productA)
	s.AddToCart(productA)

	st := s.State()
	require.Len(t, st.Cart, 1)
	assert.Equal(t, 2, st.Cart[0].Quantity)
	assert.Equal(t, []string{models.NotificationSuccess, models.NotificationInfo}, notificationTypes(st))
}

func TestUpdateCartQuantityClampsToOne(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), nil)
	s.AddToCart(productA)

	for _, q := range []int{0, -1, -100} {
		s.UpdateCartQuantity("a", q)
		assert.Equal(t, 1, s.State().Cart[0].Quantity)
	}

	s.UpdateCartQuantity("a", 7)
	assert.Equal(t, 7, s.State().Cart[0].Quantity)
}

func TestRemoveAndClearCart(t *testing.T) {
	durable := persistence.NewAdapter(persistence.NewMemoryKV())
	s := newTestStore(t, newFakeGateway(productA, productB), durable)
	s.AddToCart(productA)
	s.AddToCart(productB)

	s.RemoveFromCart("a")
	st := s.State()
	require.Len(t, st.Cart, 1)
	assert.Equal(t, "b", st.Cart[0].ID)

	s.ClearCart()
	assert.Empty(t, s.State().Cart)

	saved, ok := persistence.Load[[]models.CartItem](context.Background(), durable, persistence.KeyCart)
	require.True(t, ok)
	assert.Empty(t, saved)
}

func TestCompareTrayIsCappedAtTwo(t *testing.T) {
	s := newTestStore(t, newFakeGateway(), nil)

	s.ToggleCompare("1")
	s.ToggleCompare("2")
	s.ToggleCompare("3")

	st := s.State()
	assert.Equal(t, []string{"1", "2"}, st.Compare)
	assert.Equal(t, models.NotificationError, st.Notifications[len(st.Notifications)-1].Type)

	s.ToggleCompare("1")
	s.ToggleCompare("3")
	assert.Equal(t, []string{"2", "3"}, s.State().Compare)
}

func TestRecentlyViewedIsBoundedAndDeduplicated(t *testing.T) {
	s := newTestStore(t, newFakeGateway(), nil)

	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"} {
		s.TrackView(id)
	}
	s.TrackView("5")

	viewed := s.State().RecentlyViewed
	assert.Equal(t, []string{"5", "10", "9", "8", "7", "6", "4", "3"}, viewed)
}

func TestRecentlyViewedProductsFollowsRecency(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA, productB), nil)

	s.TrackView("a")
	s.TrackView("ghost")
	s.TrackView("b")

	products := s.RecentlyViewedProducts()
	require.Len(t, products, 2)
	assert.Equal(t, "b", products[0].ID)
	assert.Equal(t, "a", products[1].ID)
}

func TestApplyCouponIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t, newFakeGateway(), nil)

	assert.True(t, s.ApplyCoupon("nova10"))
	lower := s.State().ActiveCoupon
	assert.True(t, s.ApplyCoupon("NOVA10"))
	upper := s.State().ActiveCoupon
	require.NotNil(t, lower)
	assert.Equal(t, lower.Discount, upper.Discount)

	assert.False(t, s.ApplyCoupon("bogus"))
	require.NotNil(t, s.State().ActiveCoupon)
	assert.Equal(t, "NOVA10", s.State().ActiveCoupon.Code)

	assert.True(t, s.ApplyCoupon("welcome20"))
	assert.Equal(t, float64(20), s.State().ActiveCoupon.Discount)

	s.RemoveCoupon()
	assert.Nil(t, s.State().ActiveCoupon)
}

func TestCheckoutWithCoupon(t *testing.T) {
	gw := newFakeGateway(productA, productB)
	s := newTestStore(t, gw, nil)
	require.True(t, s.Signup(context.Background(), "ann", "ann@example.com", "pw"))

	s.AddToCart(productA)
	s.AddToCart(productB)
	s.UpdateCartQuantity("b", 2)

	totals := s.Totals()
	assert.Equal(t, 50.0, totals.Subtotal)

	require.True(t, s.ApplyCoupon("WELCOME20"))
	totals = s.Totals()
	assert.Equal(t, 10.0, totals.Discount)
	assert.Equal(t, 40.0, totals.Total)

	cartBefore := s.State().Cart
	order := s.PlaceOrder(context.Background(), "1 Main St")
	require.NotNil(t, order)

	assert.Equal(t, 40.0, gw.lastTotal)
	assert.Equal(t, 40.0, order.Total)
	assert.Equal(t, cartBefore, order.Items)

	st := s.State()
	assert.Empty(t, st.Cart)
	assert.Nil(t, st.ActiveCoupon)
	require.NotEmpty(t, st.Orders)
	assert.Equal(t, order.ID, st.Orders[0].ID)
}

func TestPlaceOrderWithoutUserIsNoOp(t *testing.T) {
	gw := newFakeGateway(productA)
	s := newTestStore(t, gw, nil)
	s.AddToCart(productA)

	assert.Nil(t, s.PlaceOrder(context.Background(), "addr"))
	assert.Empty(t, gw.placed)
	assert.Len(t, s.State().Cart, 1)
}

func TestCheckoutRetryReusesKey(t *testing.T) {
	gw := newFakeGateway(productA)
	s := newTestStore(t, gw, nil)
	ctx := context.Background()
	require.True(t, s.Signup(ctx, "ann", "ann@example.com", "pw"))
	s.AddToCart(productA)

	gw.placeErr = gateway.ErrUnconfirmed
	assert.Nil(t, s.PlaceOrder(ctx, "addr"))
	assert.Len(t, s.State().Cart, 1)

	gw.placeErr = nil
	require.NotNil(t, s.PlaceOrder(ctx, "addr"))

	s.AddToCart(productA)
	require.NotNil(t, s.PlaceOrder(ctx, "addr"))

	require.Len(t, gw.orderKeys, 3)
	assert.NotEmpty(t, gw.orderKeys[0])
	assert.Equal(t, gw.orderKeys[0], gw.orderKeys[1], "retry must reuse the key")
	assert.NotEqual(t, gw.orderKeys[1], gw.orderKeys[2], "a new checkout gets a new key")
}

func TestOrderSnapshotIsImmutable(t *testing.T) {
	gw := newFakeGateway(productA)
	s := newTestStore(t, gw, nil)
	require.True(t, s.Signup(context.Background(), "ann", "ann@example.com", "pw"))
	s.AddToCart(productA)
	order := s.PlaceOrder(context.Background(), "addr")
	require.NotNil(t, order)

	gw.mu.Lock()
	gw.products[0].Price = 999
	gw.mu.Unlock()
	s.RefreshProducts(context.Background(), "", "")
	require.Equal(t, 999.0, s.State().Products[0].Price)

	order.Items[0].Price = 1

	stored := s.State().Orders[0]
	assert.Equal(t, 20.0, stored.Total)
	assert.Equal(t, 20.0, stored.Items[0].Price)
}

func TestLogoutPreservesCart(t *testing.T) {
	durable := persistence.NewAdapter(persistence.NewMemoryKV())
	gw := newFakeGateway(productA, productB)
	s := newTestStore(t, gw, durable)

	s.AddToCart(productA)
	s.AddToCart(productB)
	cart := s.State().Cart

	require.True(t, s.Signup(context.Background(), "ann", "ann@example.com", "pw"))
	s.Logout()

	st := s.State()
	assert.Equal(t, cart, st.Cart)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Orders)
	assert.Empty(t, gw.token)

	_, ok := persistence.Load[*models.User](context.Background(), durable, persistence.KeyUser)
	assert.False(t, ok)
}

func TestLoginFetchesOrders(t *testing.T) {
	gw := newFakeGateway()
	gw.users["bob@example.com"] = &models.User{ID: "u-bob", Name: "bob", Email: "bob@example.com", Token: "t"}
	gw.orders["u-bob"] = []models.Order{{ID: "ORD-1"}, {ID: "ORD-2"}}
	durable := persistence.NewAdapter(persistence.NewMemoryKV())
	s := newTestStore(t, gw, durable)

	require.True(t, s.Login(context.Background(), "bob@example.com", ""))

	st := s.State()
	require.NotNil(t, st.User)
	assert.Len(t, st.Orders, 2)
	assert.Equal(t, "t", gw.token)

	saved, ok := persistence.Load[*models.User](context.Background(), durable, persistence.KeyUser)
	require.True(t, ok)
	assert.Equal(t, "u-bob", saved.ID)
}

func TestLoginFailureBecomesNotification(t *testing.T) {
	s := newTestStore(t, newFakeGateway(), nil)

	assert.False(t, s.Login(context.Background(), "ghost@example.com", ""))
	st := s.State()
	assert.Nil(t, st.User)
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, models.NotificationError, st.Notifications[0].Type)

	require.True(t, s.Signup(context.Background(), "ann", "ann@example.com", ""))
	assert.False(t, s.Signup(context.Background(), "ann", "ann@example.com", ""))
}

func TestUpdateOrderStatus(t *testing.T) {
	gw := newFakeGateway(productA)
	s := newTestStore(t, gw, nil)
	require.True(t, s.Signup(context.Background(), "ann", "ann@example.com", "pw"))
	s.AddToCart(productA)
	order := s.PlaceOrder(context.Background(), "addr")
	require.NotNil(t, order)

	assert.True(t, s.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusDelivered))
	assert.Equal(t, models.OrderStatusDelivered, s.State().Orders[0].Status)

	// status moves freely, backwards included
	assert.True(t, s.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusProcessing))
	assert.Equal(t, models.OrderStatusProcessing, s.State().Orders[0].Status)

	before := s.State().Orders
	assert.True(t, s.UpdateOrderStatus(context.Background(), "ORD-ELSEWHERE", models.OrderStatusShipped))
	assert.Equal(t, before, s.State().Orders)

	gw.statusErr = gateway.ErrInvalidStatus
	assert.False(t, s.UpdateOrderStatus(context.Background(), order.ID, "Lost"))
	assert.Equal(t, models.OrderStatusProcessing, s.State().Orders[0].Status)
}

func TestWishlistToggleTwice(t *testing.T) {
	durable := persistence.NewAdapter(persistence.NewMemoryKV())
	s := newTestStore(t, newFakeGateway(productA), durable)

	s.ToggleWishlist("p1")
	s.ToggleWishlist("p1")

	st := s.State()
	assert.NotContains(t, st.Wishlist, "p1")
	assert.Equal(t, []string{models.NotificationSuccess, models.NotificationInfo}, notificationTypes(st))

	saved, ok := persistence.Load[[]string](context.Background(), durable, persistence.KeyWishlist)
	require.True(t, ok)
	assert.Empty(t, saved)
}

func TestNotificationsExpireIndependently(t *testing.T) {
	s := New(newFakeGateway(), nil, Options{NotificationTTL: 30 * time.Millisecond})
	t.Cleanup(s.Close)

	first := s.AddNotification(models.NotificationInfo, "one")
	time.Sleep(15 * time.Millisecond)
	s.AddNotification(models.NotificationSuccess, "two")
	assert.Len(t, s.State().Notifications, 2)

	assert.Eventually(t, func() bool {
		ns := s.State().Notifications
		return len(ns) == 1 && ns[0].ID != first
	}, time.Second, 2*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(s.State().Notifications) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDismissNotification(t *testing.T) {
	s := newTestStore(t, newFakeGateway(), nil)

	id := s.AddNotification("weird", "hello")
	st := s.State()
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, models.NotificationInfo, st.Notifications[0].Type)

	s.DismissNotification(id)
	assert.Empty(t, s.State().Notifications)
}

func TestStateIsACopy(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), nil)
	s.AddToCart(productA)
	s.ToggleWishlist("a")

	st := s.State()
	st.Cart[0].Quantity = 42
	st.Wishlist[0] = "zzz"
	st.Products[0].Name = "changed"

	fresh := s.State()
	assert.Equal(t, 1, fresh.Cart[0].Quantity)
	assert.Equal(t, "a", fresh.Wishlist[0])
	assert.Equal(t, "Alpha Lamp", fresh.Products[0].Name)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), nil)

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, len(st.Cart))
		mu.Unlock()
	})

	s.AddToCart(productA)
	unsubscribe()
	s.RemoveFromCart("a")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1}, seen)
}

func TestSubscribersNeverSeeOlderState(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA, productB), nil)

	var mu sync.Mutex
	var first, second []int
	entered := make(chan struct{})
	release := make(chan struct{})
	var blockOnce sync.Once

	s.Subscribe(func(st State) {
		blockOnce.Do(func() {
			close(entered)
			<-release
		})
		// reading the store during delivery must not deadlock
		_ = s.State()
		mu.Lock()
		first = append(first, len(st.Cart))
		mu.Unlock()
	})
	s.Subscribe(func(st State) {
		mu.Lock()
		second = append(second, len(st.Cart))
		mu.Unlock()
	})

	doneA := make(chan struct{})
	go func() {
		s.AddToCart(productA)
		close(doneA)
	}()
	<-entered

	doneB := make(chan struct{})
	go func() {
		s.AddToCart(productB)
		close(doneB)
	}()
	require.Eventually(t, func() bool { return len(s.State().Cart) == 2 }, time.Second, time.Millisecond)

	close(release)
	<-doneA
	<-doneB

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.Equal(t, 2, first[len(first)-1])
	assert.Equal(t, 2, second[len(second)-1])
	assert.IsNonDecreasing(t, first)
	assert.IsNonDecreasing(t, second)
}

func TestReviewsAndLocale(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), nil)

	seeded := len(s.ProductReviews("1"))
	r := s.AddReview(ReviewInput{ProductID: "1", UserName: "ann", Rating: 9, Comment: "great"})
	assert.Equal(t, 5, r.Rating)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, r.Date)

	reviews := s.ProductReviews("1")
	require.Len(t, reviews, seeded+1)
	assert.Equal(t, r.ID, reviews[0].ID)

	assert.True(t, s.SetLocale(models.LocaleHI))
	assert.False(t, s.SetLocale("fr"))
	assert.Equal(t, models.LocaleHI, s.State().Locale)
}

func TestWatchPriceNotifies(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), nil)

	s.WatchPrice("a")
	st := s.State()
	require.Len(t, st.Notifications, 1)
	assert.Contains(t, st.Notifications[0].Message, "Alpha Lamp")
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenKV) Set(context.Context, string, []byte) error   { return errors.New("quota exceeded") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("disk gone") }

func TestStoreWorksWhenPersistenceFails(t *testing.T) {
	s := newTestStore(t, newFakeGateway(productA), persistence.NewAdapter(brokenKV{}))

	s.AddToCart(productA)
	s.ToggleWishlist("a")
	s.TrackView("a")
	require.True(t, s.Signup(context.Background(), "ann", "ann@example.com", ""))
	s.Logout()

	st := s.State()
	assert.Len(t, st.Cart, 1)
	assert.Equal(t, []string{"a"}, st.Wishlist)
	assert.Equal(t, []string{"a"}, st.RecentlyViewed)
}

func TestStoreOverLocalGateway(t *testing.T) {
	ctx := context.Background()
	durable := persistence.NewAdapter(persistence.NewMemoryKV())
	mock := gateway.NewMockDatabase(ctx, durable, auth.NewPasswordHasher(bcrypt.MinCost))
	gw := gateway.New(gateway.NewRemoteClient("", time.Second), mock)

	s := newTestStore(t, gw, durable)
	st := s.State()
	require.NotEmpty(t, st.Products)
	assert.True(t, st.Mock)

	require.True(t, s.Signup(ctx, "", "shopper@example.com", "secret"))
	s.AddToCart(st.Products[0])
	order := s.PlaceOrder(ctx, "42 Market Rd")
	require.NotNil(t, order)

	// a second session sees the user and the order
	again := newTestStore(t, gw, durable)
	restored := again.State()
	require.NotNil(t, restored.User)
	require.Len(t, restored.Orders, 1)
	assert.Equal(t, order.ID, restored.Orders[0].ID)
}
