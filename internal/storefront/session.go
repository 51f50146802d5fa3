package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/persistence"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Login signs in an existing account and loads its orders. The cart is left as is.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	ctx, span := util.StartSpan(ctx, "Store.Login")
	defer span.End()

	user, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		s.authFailed("login", err)
		return false
	}
	s.startSession(ctx, user, fmt.Sprintf("Welcome back, %s!", user.Name))
	return true
}

// Signup creates an account and signs it in
func (s *Store) Signup(ctx context.Context, name, email, password string) bool {
	ctx, span := util.StartSpan(ctx, "Store.Signup")
	defer span.End()

	user, err := s.gateway.Signup(ctx, name, email, password)
	if err != nil {
		s.authFailed("signup", err)
		return false
	}
	s.startSession(ctx, user, fmt.Sprintf("Welcome to NovaMart, %s!", user.Name))
	return true
}

func (s *Store) LoginWithGoogle(ctx context.Context, email, name string) bool {
	ctx, span := util.StartSpan(ctx, "Store.LoginWithGoogle")
	defer span.End()

	user, err := s.gateway.LoginWithGoogle(ctx, email, name)
	if err != nil {
		s.authFailed("google", err)
		return false
	}
	s.startSession(ctx, user, fmt.Sprintf("Welcome back, %s!", user.Name))
	return true
}

func (s *Store) startSession(ctx context.Context, user *models.User, greeting string) {
	s.gateway.SetAuthToken(user.Token)

	orders, err := s.gateway.ListUserOrders(ctx, user.ID)
	if err != nil {
		s.logger.Warn("Failed to load orders after login",
			zap.String("user_id", user.ID),
			zap.Error(err))
		orders = []models.Order{}
	}

	u := *user
	s.update(func(st *State) {
		st.User = &u
		st.Orders = orders
		s.persist(persistence.KeyUser, st.User)
		s.pushNotification(st, models.NotificationSuccess, greeting)
	})
}

func (s *Store) authFailed(method string, err error) {
	msg := "Something went wrong. Please try again."
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		msg = "No account found for that email."
	case errors.Is(err, gateway.ErrUnauthorized):
		msg = "Incorrect email or password."
	case errors.Is(err, gateway.ErrConflict):
		msg = "An account with this email already exists."
	}
	s.logger.Info("Authentication rejected", zap.String("method", method), zap.Error(err))
	s.AddNotification(models.NotificationError, msg)
}

// Logout ends the session. Orders are cleared; the cart is kept.
func (s *Store) Logout() {
	s.gateway.SetAuthToken("")
	s.update(func(st *State) {
		st.User = nil
		st.Orders = nil
		s.durable.Remove(context.Background(), persistence.KeyUser)
		s.pushNotification(st, models.NotificationInfo, "Logged out successfully.")
	})
}

// PlaceOrder checks out the cart with the active coupon applied. It does nothing
// without a signed-in user. The total sent is the merchandise total; shipping is
// the caller's concern. On success the cart and coupon are cleared. A failed
// checkout keeps its idempotency key so the retry cannot create a second order.
func (s *Store) PlaceOrder(ctx context.Context, address string) *models.Order {
	ctx, span := util.StartSpan(ctx, "Store.PlaceOrder")
	defer span.End()

	s.mu.Lock()
	user := s.state.User
	items := models.CloneItems(s.state.Cart)
	totals := ComputeTotals(s.state.Cart, s.state.ActiveCoupon)
	if user != nil && len(items) > 0 && s.checkoutKey == "" {
		s.checkoutKey = uuid.NewString()
	}
	key := s.checkoutKey
	s.mu.Unlock()

	if user == nil {
		return nil
	}
	if len(items) == 0 {
		s.AddNotification(models.NotificationError, "Your cart is empty.")
		return nil
	}

	order, err := s.gateway.PlaceOrder(ctx, user.ID, items, totals.Total, strings.TrimSpace(address), key)
	if err != nil {
		s.logger.Error("Failed to place order",
			zap.String("user_id", user.ID),
			zap.Error(err))
		s.AddNotification(models.NotificationError, "We couldn't place your order. Please try again.")
		return nil
	}

	placed := models.CloneOrder(*order)
	s.update(func(st *State) {
		if s.checkoutKey == key {
			s.checkoutKey = ""
		}
		st.Orders = append([]models.Order{placed}, st.Orders...)
		st.Cart = []models.CartItem{}
		st.ActiveCoupon = nil
		s.persist(persistence.KeyCart, st.Cart)
		s.pushNotification(st, models.NotificationSuccess, "Order placed successfully! Check your email for confirmation.")
	})

	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.Float64("total", placed.Total))
	out := models.CloneOrder(placed)
	return &out
}

// UpdateOrderStatus changes an order's status through the gateway, then in the
// local order history if the order is there
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) bool {
	ctx, span := util.StartSpan(ctx, "Store.UpdateOrderStatus")
	defer span.End()

	if err := s.gateway.UpdateOrderStatus(ctx, orderID, status); err != nil {
		s.logger.Warn("Failed to update order status",
			zap.String("order_id", orderID),
			zap.String("status", status),
			zap.Error(err))
		s.AddNotification(models.NotificationError, fmt.Sprintf("Could not update order %s.", orderID))
		return false
	}

	s.update(func(st *State) {
		for i := range st.Orders {
			if st.Orders[i].ID == orderID {
				st.Orders[i].Status = status
			}
		}
		s.pushNotification(st, models.NotificationInfo, fmt.Sprintf("Order %s status updated to %s.", orderID, status))
	})
	return true
}

// ReviewInput is a review as submitted by a shopper
type ReviewInput struct {
	ProductID string
	UserName  string
	Rating    int
	Comment   string
}

// AddReview records a session-local review
func (s *Store) AddReview(in ReviewInput) models.Review {
	rating := in.Rating
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	review := models.Review{
		ID:        models.RandomBase36(9),
		ProductID: in.ProductID,
		UserName:  in.UserName,
		Rating:    rating,
		Comment:   in.Comment,
		Date:      time.Now().Format("2006-01-02"),
	}

	s.update(func(st *State) {
		st.Reviews = append([]models.Review{review}, st.Reviews...)
		s.pushNotification(st, models.NotificationSuccess, "Review submitted! Thank you.")
	})
	return review
}

// ProductReviews returns the reviews of one product, newest first
func (s *Store) ProductReviews(productID string) []models.Review {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Review, 0)
	for _, r := range s.state.Reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}
