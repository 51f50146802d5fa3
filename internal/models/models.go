package models

import (
	"math/rand"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Product represents a catalog item
type Product struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Description  string         `db:"description" json:"description"`
	Price        float64        `db:"price" json:"price"`
	Category     string         `db:"category" json:"category"`
	Image        string         `db:"image" json:"image"`
	Rating       float64        `db:"rating" json:"rating"`
	ReviewsCount int            `db:"reviews_count" json:"reviewsCount"`
	Stock        int            `db:"stock" json:"stock"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
}

// CartItem is a product snapshot plus the quantity in the cart
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// User represents an authenticated identity
type User struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Role     string `db:"role" json:"role"`
	Provider string `db:"provider" json:"provider,omitempty"`
	Token    string `db:"-" json:"token,omitempty"`
}

// IsAdmin reports whether the user may run admin operations
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Order is the permanent receipt of a checkout
type Order struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Items           []CartItem `json:"items"`
	Total           float64    `json:"total"`
	Status          string     `json:"status"`
	Date            time.Time  `json:"date"`
	ShippingAddress string     `json:"shippingAddress,omitempty"`
}

// Review is a piece of customer feedback for a product
type Review struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	UserName  string `json:"userName"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Date      string `json:"date"`
}

// Coupon maps a code to a percentage discount
type Coupon struct {
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	Description string  `json:"description"`
}

// Notification is an ephemeral user-facing message
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Auth providers
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Order statuses
const (
	OrderStatusProcessing     = "Processing"
	OrderStatusShipped        = "Shipped"
	OrderStatusOutForDelivery = "Out for Delivery"
	OrderStatusDelivered      = "Delivered"
	OrderStatusCancelled      = "Cancelled"
)

// OrderStatuses lists every status in display order
var OrderStatuses = []string{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ValidOrderStatus reports whether s is a known status. Any known status may follow any other.
func ValidOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Notification types
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
	NotificationInfo    = "info"
)

// Locales
const (
	LocaleEN = "en"
	LocaleHI = "hi"
)

// CategoryAll disables category filtering
const CategoryAll = "All"

// Categories is the fixed set of product categories
var Categories = []string{
	"Electronics", "Fashion", "Home", "Mobiles", "Accessories",
	"Grocery", "Appliances", "Health", "Beauty", "Sports", "Books",
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomBase36 returns n random lowercase base36 characters
func RandomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b)
}

// NewOrderID returns an identifier of the form ORD-XXXXXXXX
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(RandomBase36(8))
}

// NewUserID returns an identifier of the form u-xxxxxxxxx
func NewUserID() string {
	return "u-" + RandomBase36(9)
}

// RoleForEmail derives the role of a newly created account
func RoleForEmail(email string) string {
	if strings.Contains(strings.ToLower(email), "admin") {
		return RoleAdmin
	}
	return RoleUser
}

// NameFromEmail derives a display name from the local part of an email
func NameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// CloneProduct returns a copy that shares no slices with p
func CloneProduct(p Product) Product {
	if p.Tags != nil {
		p.Tags = append(pq.StringArray(nil), p.Tags...)
	}
	return p
}

// CloneItems deep-copies cart items so later catalog changes cannot reach them
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	for i, it := range items {
		out[i] = CartItem{Product: CloneProduct(it.Product), Quantity: it.Quantity}
	}
	return out
}

// CloneOrder deep-copies an order
func CloneOrder(o Order) Order {
	o.Items = CloneItems(o.Items)
	return o
}
