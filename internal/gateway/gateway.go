// Package gateway presents the storefront's catalog, auth and order operations.
// Each call goes to the remote API first; when the remote cannot answer, the
// equivalent operation of the local MockDatabase answers instead, so callers
// only ever see the difference in latency or freshness.
package gateway

import (
	"context"
	"errors"
	"sync/atomic"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Gateway combines the remote client with its local fallback
type Gateway struct {
	remote *RemoteClient
	mock   *MockDatabase
	logger *zap.Logger

	servedByMock atomic.Bool
}

// New creates a gateway. The mock must be non-nil.
func New(remote *RemoteClient, mock *MockDatabase) *Gateway {
	return &Gateway{
		remote: remote,
		mock:   mock,
		logger: util.GetLogger(),
	}
}

// IsMock reports whether the gateway runs without a remote or the latest call fell back
func (g *Gateway) IsMock() bool {
	return !g.remote.Enabled() || g.servedByMock.Load()
}

// SetAuthToken forwards the session token to the remote client
func (g *Gateway) SetAuthToken(token string) {
	g.remote.SetToken(token)
}

func run[T any](
	ctx context.Context,
	g *Gateway,
	op string,
	remote func(context.Context) (T, error),
	local func(context.Context) (T, error),
) (T, error) {
	return runWith(ctx, g, op, Decide, remote, local)
}

func runWith[T any](
	ctx context.Context,
	g *Gateway,
	op string,
	decide func(error) (Decision, error),
	remote func(context.Context) (T, error),
	local func(context.Context) (T, error),
) (T, error) {
	ctx, span := util.StartSpan(ctx, "Gateway."+op)
	defer span.End()

	v, err := remote(ctx)
	decision, surfaced := decide(err)
	switch decision {
	case UseRemote:
		g.servedByMock.Store(false)
		return v, nil
	case Surface:
		g.servedByMock.Store(false)
		util.RecordError(span, surfaced)
		var zero T
		return zero, surfaced
	}

	reason := "unknown"
	var re *RemoteError
	if errors.As(err, &re) {
		reason = string(re.Kind)
	}
	util.GatewayFallbacksTotal.WithLabelValues(op, reason).Inc()
	span.SetAttributes(attribute.Bool("gateway.fallback", true), attribute.String("gateway.reason", reason))
	if reason != string(KindDisabled) {
		g.logger.Warn("Remote API unavailable, using local database",
			zap.String("operation", op),
			zap.Error(err))
	}

	g.servedByMock.Store(true)
	return local(ctx)
}

func (g *Gateway) ListProducts(ctx context.Context, query, category string) ([]models.Product, error) {
	return run(ctx, g, "listProducts",
		func(ctx context.Context) ([]models.Product, error) {
			return g.remote.ListProducts(ctx, query, category)
		},
		func(ctx context.Context) ([]models.Product, error) { return g.mock.ListProducts(ctx, query, category) },
	)
}

func (g *Gateway) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return run(ctx, g, "getProduct",
		func(ctx context.Context) (*models.Product, error) { return g.remote.GetProduct(ctx, id) },
		func(ctx context.Context) (*models.Product, error) { return g.mock.GetProduct(ctx, id) },
	)
}

func (g *Gateway) Login(ctx context.Context, email, password string) (*models.User, error) {
	return run(ctx, g, "login",
		func(ctx context.Context) (*models.User, error) { return g.remote.Login(ctx, email, password) },
		func(ctx context.Context) (*models.User, error) { return g.mock.Login(ctx, email, password) },
	)
}

func (g *Gateway) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	return run(ctx, g, "signup",
		func(ctx context.Context) (*models.User, error) { return g.remote.Signup(ctx, name, email, password) },
		func(ctx context.Context) (*models.User, error) { return g.mock.Signup(ctx, name, email, password) },
	)
}

func (g *Gateway) LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error) {
	return run(ctx, g, "loginWithGoogle",
		func(ctx context.Context) (*models.User, error) { return g.remote.LoginWithGoogle(ctx, email, name) },
		func(ctx context.Context) (*models.User, error) { return g.mock.LoginWithGoogle(ctx, email, name) },
	)
}

// PlaceOrder sends key as the order's idempotency key on both paths. A remote
// timeout is surfaced as ErrUnconfirmed; retrying with the same key is safe.
func (g *Gateway) PlaceOrder(ctx context.Context, userID string, items []models.CartItem, total float64, address, key string) (*models.Order, error) {
	return runWith(ctx, g, "placeOrder", DecideWrite,
		func(ctx context.Context) (*models.Order, error) {
			return g.remote.PlaceOrder(ctx, userID, items, total, address, key)
		},
		func(ctx context.Context) (*models.Order, error) {
			return g.mock.PlaceOrder(ctx, userID, items, total, address, key)
		},
	)
}

func (g *Gateway) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return run(ctx, g, "listUserOrders",
		func(ctx context.Context) ([]models.Order, error) { return g.remote.ListUserOrders(ctx, userID) },
		func(ctx context.Context) ([]models.Order, error) { return g.mock.ListOrders(ctx, userID) },
	)
}

func (g *Gateway) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return run(ctx, g, "listAllOrders",
		g.remote.ListAllOrders,
		func(ctx context.Context) ([]models.Order, error) { return g.mock.ListOrders(ctx, "") },
	)
}

func (g *Gateway) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !models.ValidOrderStatus(status) {
		return ErrInvalidStatus
	}
	_, err := run(ctx, g, "updateOrderStatus",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, g.remote.UpdateOrderStatus(ctx, id, status)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, g.mock.UpdateOrderStatus(ctx, id, status)
		},
	)
	return err
}

// SeedCatalog regenerates the catalog; destructive
func (g *Gateway) SeedCatalog(ctx context.Context) (int, error) {
	return run(ctx, g, "seedCatalog", g.remote.SeedCatalog, g.mock.SeedCatalog)
}

// Health reports the remote's health, or the local mode when it cannot be reached
func (g *Gateway) Health(ctx context.Context) (*HealthStatus, error) {
	return run(ctx, g, "health",
		func(ctx context.Context) (*HealthStatus, error) {
			h, err := g.remote.Health(ctx)
			if err == nil && h == nil {
				err = &RemoteError{Op: "health", Kind: KindDecode, Err: errors.New("empty health")}
			}
			return h, err
		},
		func(context.Context) (*HealthStatus, error) {
			return &HealthStatus{Status: "mock", Database: "local"}, nil
		},
	)
}
