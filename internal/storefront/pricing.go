package storefront

import (
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Coupons is the static coupon table
var Coupons = []models.Coupon{
	{Code: "NOVA10", Discount: 10, Description: "10% off"},
	{Code: "WELCOME20", Discount: 20, Description: "20% off"},
}

// LookupCoupon matches code case-insensitively against the coupon table
func LookupCoupon(code string) (models.Coupon, bool) {
	code = strings.TrimSpace(code)
	for _, c := range Coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return models.Coupon{}, false
}

// ApplyCoupon activates the coupon matching code, replacing any active one.
// An unknown code leaves the active coupon in place and returns false.
func (s *Store) ApplyCoupon(code string) bool {
	coupon, ok := LookupCoupon(code)
	s.update(func(st *State) {
		if !ok {
			s.pushNotification(st, models.NotificationError, "Invalid coupon code.")
			return
		}
		st.ActiveCoupon = &coupon
		s.pushNotification(st, models.NotificationSuccess, fmt.Sprintf("Coupon %s applied!", coupon.Code))
	})
	return ok
}

func (s *Store) RemoveCoupon() {
	s.update(func(st *State) {
		st.ActiveCoupon = nil
	})
}

// Totals is the merchandise pricing of a cart. Shipping is not included.
type Totals struct {
	Subtotal float64
	Discount float64
	Total    float64
}

// ComputeTotals prices items with an optional percentage coupon, rounded to cents
func ComputeTotals(items []models.CartItem, coupon *models.Coupon) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	if coupon != nil {
		discount = subtotal.Mul(decimal.NewFromFloat(coupon.Discount)).Div(decimal.NewFromInt(100)).Round(2)
	}
	total := subtotal.Sub(discount)

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Discount: discount.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// Totals prices the current cart with the active coupon
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.state.Cart, s.state.ActiveCoupon)
}
