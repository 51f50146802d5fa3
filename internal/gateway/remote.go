package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// RemoteClient talks to the storefront REST API. Every failure comes back as a *RemoteError.
type RemoteClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewRemoteClient creates a client for baseURL (e.g. http://localhost:5000/api).
// A baseURL that is not an http(s) URL disables the remote entirely.
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	logger := util.GetLogger()

	st := gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return !breakerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			util.GatewayCircuitState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Remote API circuit changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](st),
		logger:  logger,
	}
}

// Enabled reports whether a remote endpoint is configured
func (c *RemoteClient) Enabled() bool {
	return strings.HasPrefix(c.baseURL, "http://") || strings.HasPrefix(c.baseURL, "https://")
}

// SetToken sets the bearer token sent with every request; "" clears it
func (c *RemoteClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *RemoteClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// request describes one remote exchange
type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

func (c *RemoteClient) do(ctx context.Context, req request) ([]byte, error) {
	if !c.Enabled() {
		return nil, &RemoteError{Op: req.op, Kind: KindDisabled}
	}

	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.exchange(ctx, req)
	})
	util.GatewayRemoteLatency.WithLabelValues(req.op).Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &RemoteError{Op: req.op, Kind: KindCircuitOpen, Err: err}
	}
	if err != nil {
		util.GatewayRemoteRequestsTotal.WithLabelValues(req.op, "error").Inc()
		return nil, err
	}
	util.GatewayRemoteRequestsTotal.WithLabelValues(req.op, "ok").Inc()
	return data, nil
}

func (c *RemoteClient) exchange(ctx context.Context, req request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, &RemoteError{Op: req.op, Kind: KindDecode, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, &RemoteError{Op: req.op, Kind: KindNetwork, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &RemoteError{Op: req.op, Kind: KindTimeout, Err: err}
		}
		return nil, &RemoteError{Op: req.op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RemoteError{Op: req.op, Kind: KindNetwork, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Op: req.op, Kind: KindStatus, StatusCode: resp.StatusCode}
	}
	return data, nil
}

func decode[T any](op string, data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &RemoteError{Op: op, Kind: KindDecode, Err: err}
	}
	return v, nil
}

func fetch[T any](ctx context.Context, c *RemoteClient, req request) (T, error) {
	data, err := c.do(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](req.op, data)
}

func (c *RemoteClient) ListProducts(ctx context.Context, query, category string) ([]models.Product, error) {
	q := url.Values{}
	if query != "" {
		q.Set("search", query)
	}
	if category != "" {
		q.Set("category", category)
	}
	products, err := fetch[[]models.Product](ctx, c, request{op: "listProducts", method: http.MethodGet, path: "/products", query: q})
	if err != nil {
		return nil, err
	}
	if products == nil {
		return nil, &RemoteError{Op: "listProducts", Kind: KindDecode, Err: errors.New("null product list")}
	}
	return products, nil
}

func (c *RemoteClient) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := fetch[*models.Product](ctx, c, request{op: "getProduct", method: http.MethodGet, path: "/products/" + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}
	if p == nil || p.ID == "" {
		return nil, &RemoteError{Op: "getProduct", Kind: KindDecode, Err: errors.New("empty product")}
	}
	return p, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *RemoteClient) authenticate(ctx context.Context, op, path string, body any) (*models.User, error) {
	u, err := fetch[*models.User](ctx, c, request{op: op, method: http.MethodPost, path: path, body: body})
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID == "" {
		return nil, &RemoteError{Op: op, Kind: KindDecode, Err: errors.New("empty user")}
	}
	return u, nil
}

func (c *RemoteClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "login", "/auth/login", loginRequest{Email: email, Password: password})
}

func (c *RemoteClient) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "signup", "/auth/register", registerRequest{Name: name, Email: email, Password: password})
}

func (c *RemoteClient) LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error) {
	return c.authenticate(ctx, "loginWithGoogle", "/auth/google", googleRequest{Email: email, Name: name})
}

type placeOrderRequest struct {
	UserID          string            `json:"userId"`
	Items           []models.CartItem `json:"items"`
	Total           float64           `json:"total"`
	ShippingAddress string            `json:"shippingAddress"`
}

// PlaceOrder posts an order. A non-empty key is sent as Idempotency-Key so a
// retried checkout returns the order the server already created.
func (c *RemoteClient) PlaceOrder(ctx context.Context, userID string, items []models.CartItem, total float64, address, key string) (*models.Order, error) {
	req := request{
		op:     "placeOrder",
		method: http.MethodPost,
		path:   "/orders",
		body:   placeOrderRequest{UserID: userID, Items: items, Total: total, ShippingAddress: address},
	}
	if key != "" {
		req.headers = map[string]string{"Idempotency-Key": key}
	}
	o, err := fetch[*models.Order](ctx, c, req)
	if err != nil {
		return nil, err
	}
	if o == nil || o.ID == "" {
		return nil, &RemoteError{Op: "placeOrder", Kind: KindDecode, Err: errors.New("empty order")}
	}
	return o, nil
}

func (c *RemoteClient) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := fetch[[]models.Order](ctx, c, request{op: "listUserOrders", method: http.MethodGet, path: "/orders/user/" + url.PathEscape(userID)})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (c *RemoteClient) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := fetch[[]models.Order](ctx, c, request{op: "listAllOrders", method: http.MethodGet, path: "/orders"})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

func (c *RemoteClient) UpdateOrderStatus(ctx context.Context, id, status string) error {
	_, err := c.do(ctx, request{
		op:     "updateOrderStatus",
		method: http.MethodPatch,
		path:   "/orders/" + url.PathEscape(id) + "/status",
		body:   statusRequest{Status: status},
	})
	return err
}

func (c *RemoteClient) SeedCatalog(ctx context.Context) (int, error) {
	type seedResponse struct {
		Count int `json:"count"`
	}
	resp, err := fetch[seedResponse](ctx, c, request{op: "seedCatalog", method: http.MethodPost, path: "/products/seed"})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// HealthStatus mirrors GET /api/health
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
}

func (c *RemoteClient) Health(ctx context.Context) (*HealthStatus, error) {
	return fetch[*HealthStatus](ctx, c, request{op: "health", method: http.MethodGet, path: "/health"})
}
