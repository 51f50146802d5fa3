package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"storefront/config"
	"storefront/internal/auth"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/oracle"
	"storefront/internal/persistence"
	"storefront/internal/redisclient"
	"storefront/internal/storefront"

	"go.uber.org/zap"
)

// session is everything one CLI process works with
type session struct {
	store   *storefront.Store
	gateway *gateway.Gateway
	oracle  *oracle.Client
	closers []io.Closer

	printed map[string]bool
}

// openKV picks the durable backend named by backend
func openKV(cfg *config.Config) (persistence.KV, io.Closer, error) {
	switch strings.ToLower(cfg.Persistence.Backend) {
	case "memory":
		return persistence.NewMemoryKV(), nil, nil
	case "redis":
		client, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case "file", "":
		kv, err := persistence.NewFileKV(cfg.Persistence.Dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
}

func newSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session, error) {
	kv, closer, err := openKV(cfg)
	if err != nil {
		// durable storage is best effort; a session still works in memory
		logger.Warn("Persistence backend unavailable, using memory", zap.String("backend", cfg.Persistence.Backend), zap.Error(err))
		kv, closer = persistence.NewMemoryKV(), nil
	}
	durable := persistence.NewAdapter(kv)

	mock := gateway.NewMockDatabase(ctx, durable, auth.NewPasswordHasher(cfg.Auth.BcryptCost))
	gw := gateway.New(gateway.NewRemoteClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout), mock)

	s := &session{
		store:   storefront.New(gw, durable, storefront.Options{}),
		gateway: gw,
		oracle: oracle.NewClient(oracle.Config{
			APIKey:    cfg.Oracle.APIKey,
			BaseURL:   cfg.Oracle.BaseURL,
			FastModel: cfg.Oracle.FastModel,
			ProModel:  cfg.Oracle.ProModel,
			Timeout:   cfg.Oracle.Timeout,
		}),
		printed: map[string]bool{},
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	s.store.Init(ctx)
	return s, nil
}

func (s *session) Close() {
	s.store.Close()
	for _, c := range s.closers {
		c.Close()
	}
}

// flushNotifications prints notifications raised since the last flush
func (s *session) flushNotifications(w io.Writer) {
	for _, n := range s.store.State().Notifications {
		if s.printed[n.ID] {
			continue
		}
		s.printed[n.ID] = true
		fmt.Fprintf(w, "[%s] %s\n", n.Type, n.Message)
	}
}

// product resolves an id against the loaded catalog, then the gateway
func (s *session) product(ctx context.Context, id string) (models.Product, error) {
	for _, p := range s.store.State().Products {
		if p.ID == id {
			return p, nil
		}
	}
	p, err := s.gateway.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	return *p, nil
}
