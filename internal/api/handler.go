package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CatalogService is implemented by service.CatalogService
type CatalogService interface {
	ListProducts(ctx context.Context, query, category string) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	Seed(ctx context.Context) (int, error)
}

// AuthService is implemented by service.AuthService
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error)
}

// OrderService is implemented by service.OrderService
type OrderService interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest, idempotencyKey string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// Pinger reports backend liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the handler. Catalog, Auth and Orders are nil when the database is
// unavailable; the server then answers 503 on data routes and stays up for health.
type Deps struct {
	Catalog     CatalogService
	Auth        AuthService
	Orders      OrderService
	Tokens      *auth.TokenManager
	Database    Pinger
	Cache       Pinger
	FrontendURL string
}

// Handler contains HTTP handlers
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:   deps,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.deps.FrontendURL))
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/health", h.healthCheck)

	data := api.Group("", h.requireDatabase())
	{
		data.GET("/products", h.listProducts)
		data.GET("/products/:id", h.getProduct)
		data.POST("/products/seed", h.requireAdmin(), h.seedCatalog)

		data.POST("/auth/login", h.login)
		data.POST("/auth/register", h.register)
		data.POST("/auth/google", h.loginWithGoogle)

		data.POST("/orders", h.createOrder)
		data.GET("/orders/user/:userId", h.listUserOrders)
		data.GET("/orders", h.requireAdmin(), h.listAllOrders)
		data.PATCH("/orders/:id/status", h.requireAdmin(), h.updateOrderStatus)
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// healthCheck is always served, including in degraded mode
func (h *Handler) healthCheck(c *gin.Context) {
	database := probe(c.Request.Context(), h.deps.Database)
	if database == "disabled" {
		database = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "active",
		"database":  database,
		"cache":     probe(c.Request.Context(), h.deps.Cache),
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.deps.Catalog.ListProducts(c.Request.Context(), c.Query("search"), c.Query("category"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.deps.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) seedCatalog(c *gin.Context) {
	n, err := h.deps.Catalog.Seed(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Seeding failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// respondError maps service errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrSeedInProgress):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidStatus):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
