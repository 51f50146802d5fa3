package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
)

type orderRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	Items           []byte         `db:"items"`
	Total           float64        `db:"total"`
	Status          string         `db:"status"`
	ShippingAddress string         `db:"shipping_address"`
	IdempotencyKey  sql.NullString `db:"idempotency_key"`
	CreatedAt       time.Time      `db:"created_at"`
}

const orderColumns = "id, user_id, items, total, status, shipping_address, idempotency_key, created_at"

func (r orderRow) toModel() (models.Order, error) {
	o := models.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		Total:           r.Total,
		Status:          r.Status,
		Date:            r.CreatedAt.UTC(),
		ShippingAddress: r.ShippingAddress,
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return o, fmt.Errorf("failed to unmarshal items of order %s: %w", r.ID, err)
	}
	if o.Items == nil {
		o.Items = []models.CartItem{}
	}
	return o, nil
}

func toModels(rows []orderRow) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// CreateOrder inserts an order. A reused idempotency key yields ErrConflict.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, idempotencyKey string) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	key := sql.NullString{String: idempotencyKey, Valid: idempotencyKey != ""}
	var createdAt time.Time
	err = s.db.GetContext(ctx, &createdAt,
		`INSERT INTO orders (id, user_id, items, total, status, shipping_address, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		order.ID, order.UserID, items, order.Total, order.Status, order.ShippingAddress, key)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s: %w", order.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.Date = createdAt.UTC()
	return nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	o, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrdersByUserID retrieves orders for a user, most recent first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID); err != nil {
		return nil, err
	}
	return toModels(rows)
}

// ListOrders retrieves every order, most recent first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC"); err != nil {
		return nil, err
	}
	return toModels(rows)
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
