package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// ProductPageLimit caps a catalog query
	ProductPageLimit = 100

	catalogCacheTTL = 5 * time.Minute
	seedLockKey     = "catalog-seed"
	seedLockTTL     = 2 * time.Minute
)

// CatalogRepository is the product storage; implemented by store.Store
type CatalogRepository interface {
	ListProducts(ctx context.Context, query, category string, limit int) ([]models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ReplaceCatalog(ctx context.Context, products []models.Product) error
	CountProducts(ctx context.Context) (int, error)
}

// CatalogService serves catalog queries through a Redis cache
type CatalogService struct {
	repo      CatalogRepository
	cache     Cache
	publisher EventPublisher
	sfg       singleflight.Group
	logger    *zap.Logger
}

// NewCatalogService creates a catalog service; cache and publisher may be nil
func NewCatalogService(repo CatalogRepository, cache Cache, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

func catalogKey(query, category string) string {
	if category == "" {
		category = models.CategoryAll
	}
	return category + ":" + strings.ToLower(strings.TrimSpace(query))
}

// ListProducts returns up to ProductPageLimit products matching query and category
func (s *CatalogService) ListProducts(ctx context.Context, query, category string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts",
		attribute.String("catalog.query", query),
		attribute.String("catalog.category", category))
	defer span.End()

	key := catalogKey(query, category)
	if s.cache != nil {
		if data, err := s.cache.GetCatalog(ctx, key); err == nil {
			var products []models.Product
			if err := json.Unmarshal(data, &products); err == nil {
				util.CatalogCacheTotal.WithLabelValues("hit").Inc()
				return products, nil
			}
		}
		util.CatalogCacheTotal.WithLabelValues("miss").Inc()
	}

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		products, err := s.repo.ListProducts(ctx, query, category, ProductPageLimit)
		if err != nil {
			return nil, err
		}
		s.cacheResult(ctx, key, products)
		return products, nil
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return v.([]models.Product), nil
}

func (s *CatalogService) cacheResult(ctx context.Context, key string, products []models.Product) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.cache.SetCatalog(ctx, key, data, catalogCacheTTL); err != nil {
		s.logger.Warn("Failed to cache catalog query", zap.String("key", key), zap.Error(err))
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	return s.repo.GetProductByID(ctx, id)
}

// Seed wipes the catalog and loads a freshly generated one. Concurrent seeds are
// rejected with ErrSeedInProgress.
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Seed")
	defer span.End()

	if s.cache != nil {
		acquired, err := s.cache.AcquireLock(ctx, seedLockKey, seedLockTTL)
		if err != nil {
			s.logger.Warn("Seed lock unavailable, seeding without it", zap.Error(err))
		} else if !acquired {
			return 0, ErrSeedInProgress
		} else {
			defer func() {
				if err := s.cache.ReleaseLock(context.Background(), seedLockKey); err != nil {
					s.logger.Warn("Failed to release seed lock", zap.Error(err))
				}
			}()
		}
	}

	products := catalog.Generate(catalog.DefaultSize, nil)
	if err := s.repo.ReplaceCatalog(ctx, products); err != nil {
		return 0, fmt.Errorf("failed to replace catalog: %w", err)
	}
	util.CatalogSeedsTotal.Inc()

	if s.cache != nil {
		if err := s.cache.InvalidateCatalog(ctx); err != nil {
			s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := &models.CatalogSeededEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCatalogSeeded,
				Timestamp: time.Now(),
			},
			Count: len(products),
		}
		if err := s.publisher.PublishCatalogSeeded(ctx, event); err != nil {
			s.logger.Error("Failed to publish CatalogSeeded event", zap.Error(err))
		}
	}

	s.logger.Info("Catalog seeded", zap.Int("count", len(products)))
	return len(products), nil
}

// EnsureSeeded seeds an empty catalog
func (s *CatalogService) EnsureSeeded(ctx context.Context) error {
	n, err := s.repo.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.Seed(ctx)
	return err
}
