package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// OrderRepository is the order storage; implemented by store.Store
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order, idempotencyKey string) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// OrderService handles order business logic
type OrderService struct {
	orders    OrderRepository
	cache     Cache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service; cache and publisher may be nil
func NewOrderService(orders OrderRepository, cache Cache, publisher EventPublisher) *OrderService {
	return &OrderService{
		orders:    orders,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest is the body of POST /api/orders
type CreateOrderRequest struct {
	UserID          string            `json:"userId" binding:"required"`
	Items           []models.CartItem `json:"items" binding:"required,min=1"`
	Total           float64           `json:"total" binding:"min=0"`
	ShippingAddress string            `json:"shippingAddress"`
}

// CreateOrder records a checkout. The items and total are stored as sent: they are
// the shopper's snapshot at purchase time. A repeated idempotency key returns the
// order created by the first request.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder",
		attribute.String("user.id", req.UserID),
		attribute.Int("order.lines", len(req.Items)))
	defer span.End()

	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if existing, err := s.cachedOrder(ctx, idempotencyKey); err != nil || existing != nil {
			return existing, err
		}

		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("order_id", existing.ID))
			return existing, nil
		}

		if s.cache != nil {
			reserved, err := s.cache.ReserveIdempotencyKey(ctx, idempotencyKey, idempotencyTTL)
			if err != nil {
				s.logger.Warn("Idempotency reservation unavailable", zap.Error(err))
			} else if !reserved {
				return nil, fmt.Errorf("order request %s is already being processed: %w", idempotencyKey, ErrConflict)
			}
		}
	}

	order := &models.Order{
		ID:              models.NewOrderID(),
		UserID:          req.UserID,
		Items:           models.CloneItems(req.Items),
		Total:           req.Total,
		Status:          models.OrderStatusProcessing,
		Date:            time.Now().UTC(),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
	}

	if err := s.orders.CreateOrder(ctx, order, idempotencyKey); err != nil {
		if idempotencyKey != "" && s.cache != nil {
			_ = s.cache.ReleaseIdempotencyKey(ctx, idempotencyKey)
		}
		if errors.Is(err, ErrConflict) && idempotencyKey != "" {
			if existing, lookupErr := s.orders.GetOrderByIdempotencyKey(ctx, idempotencyKey); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if idempotencyKey != "" && s.cache != nil {
		if err := s.cache.SetIdempotencyKey(ctx, idempotencyKey, order.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.Error(err))
		}
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total", order.Total))

	if s.publisher != nil {
		itemCount := 0
		for _, it := range order.Items {
			itemCount += it.Quantity
		}
		event := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: time.Now(),
			},
			OrderID:         order.ID,
			UserID:          order.UserID,
			Total:           order.Total,
			ItemCount:       itemCount,
			ShippingAddress: order.ShippingAddress,
		}
		if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	return order, nil
}

// cachedOrder resolves an idempotency key that Redis already bound to an order.
// A miss, a pending reservation or a cache error returns nil so the DB and the
// reservation decide.
func (s *OrderService) cachedOrder(ctx context.Context, key string) (*models.Order, error) {
	if s.cache == nil {
		return nil, nil
	}
	orderID, err := s.cache.GetIdempotencyKey(ctx, key)
	if err != nil || orderID == "" {
		return nil, nil
	}
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("Cached idempotency key points at a missing order",
			zap.String("idempotency_key", key),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, nil
	}
	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", order.ID))
	return order, nil
}

func validateItems(items []models.CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("order has no items: %w", ErrInvalidInput)
	}
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 || it.Price < 0 {
			return fmt.Errorf("invalid order item %q: %w", it.ID, ErrInvalidInput)
		}
	}
	return nil
}

// ListUserOrders returns a user's orders, most recent first
func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListUserOrders")
	defer span.End()

	return s.orders.GetOrdersByUserID(ctx, userID)
}

// ListAllOrders returns every order, most recent first
func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListAllOrders")
	defer span.End()

	return s.orders.ListOrders(ctx)
}

// UpdateStatus moves an order to any known status; there is no transition graph
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus",
		attribute.String("order.id", orderID),
		attribute.String("order.status", status))
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	if err := s.orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	util.OrderStatusUpdatesTotal.WithLabelValues(status).Inc()

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID: orderID,
			Status:  status,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}
	return nil
}
