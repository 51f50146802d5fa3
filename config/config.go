package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Observ      ObservabilityConfig
	Auth        AuthConfig
	Gateway     GatewayConfig
	Persistence PersistenceConfig
	Oracle      OracleConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	FrontendURL string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	TracingEnabled bool
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// GatewayConfig configures the storefront's remote data gateway
type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PersistenceConfig selects the durable key-value backend of the storefront client.
// Backend is one of "file", "redis" or "memory".
type PersistenceConfig struct {
	Backend string
	Dir     string
}

type OracleConfig struct {
	APIKey    string
	BaseURL   string
	FastModel string
	ProModel  string
	Timeout   time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTLHours, _ := strconv.Atoi(getEnv("AUTH_TOKEN_TTL_HOURS", "72"))
	bcryptCost, _ := strconv.Atoi(getEnv("AUTH_BCRYPT_COST", "12"))
	gatewayTimeout, _ := strconv.Atoi(getEnv("GATEWAY_TIMEOUT_SECONDS", "8"))
	oracleTimeout, _ := strconv.Atoi(getEnv("ORACLE_TIMEOUT_SECONDS", "20"))

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Env:         getEnv("ENV", "development"),
			FrontendURL: getEnv("FRONTEND_URL", "*"),
		},
		Database: DatabaseConfig{
			// empty keeps the server up in degraded mode
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-notifier"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			TracingEnabled: getEnv("TRACING_ENABLED", "true") == "true",
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "novamart-dev-secret-change-me"),
			TokenTTL:   time.Duration(tokenTTLHours) * time.Hour,
			BcryptCost: bcryptCost,
		},
		Gateway: GatewayConfig{
			BaseURL: getEnv("API_BASE_URL", "http://localhost:5000/api"),
			Timeout: time.Duration(gatewayTimeout) * time.Second,
		},
		Persistence: PersistenceConfig{
			Backend: getEnv("STOREFRONT_PERSISTENCE", "file"),
			Dir:     getEnv("STOREFRONT_DATA_DIR", ".novamart"),
		},
		Oracle: OracleConfig{
			APIKey:    getEnv("API_KEY", ""),
			BaseURL:   getEnv("ORACLE_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			FastModel: getEnv("ORACLE_FAST_MODEL", "gemini-3-flash-preview"),
			ProModel:  getEnv("ORACLE_PRO_MODEL", "gemini-3-pro-preview"),
			Timeout:   time.Duration(oracleTimeout) * time.Second,
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
