package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeCatalogSeeded      = "CATALOG_SEEDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when a checkout creates an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID         string  `json:"order_id"`
	UserID          string  `json:"user_id"`
	Total           float64 `json:"total"`
	ItemCount       int     `json:"item_count"`
	ShippingAddress string  `json:"shipping_address,omitempty"`
}

// OrderStatusChangedEvent published when an admin moves an order to a new status
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// CatalogSeededEvent published after the catalog is regenerated
type CatalogSeededEvent struct {
	BaseEvent
	Count int `json:"count"`
}
