package storefront

import (
	"fmt"

	"storefront/internal/models"
	"storefront/internal/persistence"
)

// AddToCart adds one unit of product. A product already in the cart has its
// quantity incremented instead of being added twice. Stock is not enforced.
func (s *Store) AddToCart(product models.Product) {
	if product.ID == "" {
		return
	}
	s.update(func(st *State) {
		for i := range st.Cart {
			if st.Cart[i].ID == product.ID {
				st.Cart[i].Quantity++
				s.persist(persistence.KeyCart, st.Cart)
				s.pushNotification(st, models.NotificationInfo, fmt.Sprintf("Updated %s quantity.", product.Name))
				return
			}
		}
		st.Cart = append(st.Cart, models.CartItem{Product: models.CloneProduct(product), Quantity: 1})
		s.persist(persistence.KeyCart, st.Cart)
		s.pushNotification(st, models.NotificationSuccess, fmt.Sprintf("%s added to cart!", product.Name))
	})
}

func (s *Store) RemoveFromCart(productID string) {
	s.update(func(st *State) {
		out := make([]models.CartItem, 0, len(st.Cart))
		for _, it := range st.Cart {
			if it.ID != productID {
				out = append(out, it)
			}
		}
		st.Cart = out
		s.persist(persistence.KeyCart, st.Cart)
	})
}

// UpdateCartQuantity sets the quantity of a cart line, clamped to at least 1
func (s *Store) UpdateCartQuantity(productID string, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.update(func(st *State) {
		for i := range st.Cart {
			if st.Cart[i].ID == productID {
				st.Cart[i].Quantity = quantity
				s.persist(persistence.KeyCart, st.Cart)
				return
			}
		}
	})
}

func (s *Store) ClearCart() {
	s.update(func(st *State) {
		st.Cart = []models.CartItem{}
		s.persist(persistence.KeyCart, st.Cart)
	})
}

// ToggleWishlist saves productID, or removes it when already saved
func (s *Store) ToggleWishlist(productID string) {
	s.update(func(st *State) {
		for i, id := range st.Wishlist {
			if id == productID {
				st.Wishlist = append(st.Wishlist[:i:i], st.Wishlist[i+1:]...)
				s.persist(persistence.KeyWishlist, st.Wishlist)
				s.pushNotification(st, models.NotificationInfo, "Removed from wishlist.")
				return
			}
		}
		st.Wishlist = append(st.Wishlist, productID)
		s.persist(persistence.KeyWishlist, st.Wishlist)
		s.pushNotification(st, models.NotificationSuccess, fmt.Sprintf("%s saved to wishlist!", s.productName(productID)))
	})
}

// ToggleCompare adds productID to the comparison tray or removes it. The tray is
// a hard cap: adding to a full tray is rejected, nothing is evicted.
func (s *Store) ToggleCompare(productID string) {
	s.update(func(st *State) {
		for i, id := range st.Compare {
			if id == productID {
				st.Compare = append(st.Compare[:i:i], st.Compare[i+1:]...)
				return
			}
		}
		if len(st.Compare) >= CompareLimit {
			s.pushNotification(st, models.NotificationError, fmt.Sprintf("You can only compare %d products at a time.", CompareLimit))
			return
		}
		st.Compare = append(st.Compare, productID)
		s.pushNotification(st, models.NotificationInfo, "Product added to comparison tray.")
	})
}

// TrackView moves productID to the front of the recently viewed list
func (s *Store) TrackView(productID string) {
	s.update(func(st *State) {
		viewed := make([]string, 0, RecentlyViewedLimit)
		viewed = append(viewed, productID)
		for _, id := range st.RecentlyViewed {
			if id != productID && len(viewed) < RecentlyViewedLimit {
				viewed = append(viewed, id)
			}
		}
		st.RecentlyViewed = viewed
		s.persist(persistence.KeyRecentlyViewed, st.RecentlyViewed)
	})
}

// RecentlyViewedProducts resolves the recently viewed list against the loaded
// catalog, most recent first. IDs missing from the catalog are skipped.
func (s *Store) RecentlyViewedProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0, len(s.state.RecentlyViewed))
	for _, id := range s.state.RecentlyViewed {
		if p, ok := s.findProduct(id); ok {
			out = append(out, models.CloneProduct(p))
		}
	}
	return out
}

// WatchPrice registers interest in a price drop
func (s *Store) WatchPrice(productID string) {
	s.update(func(st *State) {
		s.pushNotification(st, models.NotificationInfo,
			fmt.Sprintf("Price alert set for %s! We'll notify you if the price drops.", s.productName(productID)))
	})
}

// SetLocale switches the display language; unknown locales are ignored
func (s *Store) SetLocale(locale string) bool {
	if !validLocale(locale) {
		return false
	}
	s.update(func(st *State) {
		st.Locale = locale
		s.persist(persistence.KeyLocale, st.Locale)
	})
	return true
}

// productName must be called with mu held
func (s *Store) productName(id string) string {
	if p, ok := s.findProduct(id); ok {
		return p.Name
	}
	return "Product"
}
