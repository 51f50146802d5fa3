package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
)

var (
	ErrNotFound       = store.ErrNotFound
	ErrConflict       = store.ErrConflict
	ErrUnauthorized   = errors.New("invalid credentials")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrSeedInProgress = errors.New("catalog seed already in progress")
)

// EventPublisher publishes domain events; implemented by broker.EventPublisher
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishCatalogSeeded(ctx context.Context, event *models.CatalogSeededEvent) error
}

// Cache is the subset of the Redis client the services use; implemented by redisclient.Client
type Cache interface {
	GetCatalog(ctx context.Context, queryKey string) ([]byte, error)
	SetCatalog(ctx context.Context, queryKey string, data []byte, ttl time.Duration) error
	InvalidateCatalog(ctx context.Context) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}
