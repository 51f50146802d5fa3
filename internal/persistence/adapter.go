// Package persistence stores named JSON blobs across sessions. Durable storage is a
// cache of session state, never a source of truth: every failure is logged and
// swallowed so callers stay correct even when nothing is ever written.
package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// Durable keys used by the storefront
const (
	KeyCart           = "nova_cart"
	KeyWishlist       = "nova_wishlist"
	KeyRecentlyViewed = "nova_viewed"
	KeyLocale         = "nova_locale"
	KeyUser           = "nova_user"
	KeyMockDatabase   = "novamart_db"
)

// CatalogCacheLimit bounds how many products are ever written to durable storage
const CatalogCacheLimit = 100

// Adapter wraps a KV backend with fail-soft JSON encoding
type Adapter struct {
	kv     KV
	logger *zap.Logger
}

// NewAdapter creates an adapter over kv
func NewAdapter(kv KV) *Adapter {
	return &Adapter{
		kv:     kv,
		logger: util.GetLogger(),
	}
}

// Load decodes the blob stored under key into a T. It returns false when the key is
// absent, unreadable or corrupt; it never fails.
func Load[T any](ctx context.Context, a *Adapter, key string) (T, bool) {
	var zero T
	if a == nil {
		return zero, false
	}

	data, err := a.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return zero, false
	}
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("load").Inc()
		a.logger.Warn("Durable storage read failed, treating as absent",
			zap.String("key", key),
			zap.Error(err))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("decode").Inc()
		a.logger.Warn("Corrupt durable entry, treating as absent",
			zap.String("key", key),
			zap.Error(err))
		return zero, false
	}
	return v, true
}

// Save encodes value under key. On failure the previous value is left untouched.
func (a *Adapter) Save(ctx context.Context, key string, value any) {
	if a == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("encode").Inc()
		a.logger.Error("Failed to encode durable entry",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	if err := a.kv.Set(ctx, key, data); err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("save").Inc()
		a.logger.Error("Durable storage write failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Remove deletes key
func (a *Adapter) Remove(ctx context.Context, key string) {
	if a == nil {
		return
	}

	if err := a.kv.Delete(ctx, key); err != nil {
		util.PersistenceFailuresTotal.WithLabelValues("remove").Inc()
		a.logger.Error("Durable storage delete failed",
			zap.String("key", key),
			zap.Error(err))
	}
}
