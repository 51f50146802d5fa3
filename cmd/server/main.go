package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting NovaMart API server")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("storefront-api", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					logger.Error("Error shutting down tracer", zap.Error(err))
				}
			}()
		}
	}

	deps := api.Deps{
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		FrontendURL: cfg.Server.FrontendURL,
	}

	// Redis is optional: without it there is no query cache, seed lock or idempotency reservation.
	var cache service.Cache
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		cache = redisClient
		deps.Cache = redisClient
		logger.Info("Redis connected")
	}

	var publisher service.EventPublisher
	var producer *broker.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var orderWorker *worker.OrderWorker

	// A missing or unreachable database keeps the process alive in degraded mode.
	db, err := connectDatabase(cfg.Database.URL)
	if err != nil {
		logger.Error("Database unavailable, serving health only", zap.Error(err))
	} else {
		defer db.Close()
		deps.Database = db

		catalogService := service.NewCatalogService(db, cache, publisher)
		deps.Catalog = catalogService
		deps.Auth = service.NewAuthService(db, auth.NewPasswordHasher(cfg.Auth.BcryptCost), deps.Tokens)
		deps.Orders = service.NewOrderService(db, cache, publisher)

		seedCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := catalogService.EnsureSeeded(seedCtx); err != nil {
			logger.Error("Failed to seed catalog", zap.Error(err))
		}
		cancel()

		if producer != nil {
			consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
			orderWorker = worker.NewOrderWorker(consumer, db, worker.NewLogNotifier())
			go func() {
				if err := orderWorker.Start(workerCtx); err != nil {
					logger.Error("Order worker error", zap.Error(err))
				}
			}()
		}
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(deps)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if orderWorker != nil {
		if err := orderWorker.Stop(); err != nil {
			logger.Warn("Failed to stop order worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func connectDatabase(url string) (*store.Store, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := store.NewStore(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
