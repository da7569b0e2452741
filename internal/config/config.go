package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTPPort string
	GRPCPort string
	LogLevel string

	// StoreDriver is "postgres" or "memory". The memory store starts from
	// StoreSeedFile, if set, and loses everything on exit.
	StoreDriver   string
	StoreSeedFile string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	NotifyTopic  string

	Gateway GatewayConfig

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	WebhookTimeout  time.Duration
	HealthInterval  time.Duration
}

type GatewayConfig struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
	Timeout       time.Duration
	MaxRetries    int
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "50051"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		StoreSeedFile: getEnv("STORE_SEED_FILE", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getIntEnv("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "storefront"),
		DBPassword: getEnv("DB_PASSWORD", "storefront"),
		DBName:     getEnv("DB_NAME", "storefront"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: getListEnv("KAFKA_BROKERS"),
		NotifyTopic:  getEnv("NOTIFY_TOPIC", "storefront.order-notifications"),

		Gateway: GatewayConfig{
			APIKey:        getEnv("GATEWAY_API_KEY", ""),
			BaseURL:       getEnv("GATEWAY_BASE_URL", ""),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			SuccessURL:    getEnv("GATEWAY_SUCCESS_URL", "http://localhost:3000/checkout/success"),
			CancelURL:     getEnv("GATEWAY_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
			Currency:      strings.ToLower(getEnv("GATEWAY_CURRENCY", "usd")),
			Timeout:       getDurationEnv("GATEWAY_TIMEOUT", 10*time.Second),
			MaxRetries:    getIntEnv("GATEWAY_MAX_RETRIES", 3),
		},

		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		WebhookTimeout:  getDurationEnv("WEBHOOK_TIMEOUT", 30*time.Second),
		HealthInterval:  getDurationEnv("HEALTH_PROBE_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
