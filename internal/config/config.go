package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort string
	GRPCPort string
	LogLevel string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	CatalogDBPath         string
	CatalogMigrationsPath string

	KafkaBrokers []string
	KafkaTopic   string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIURL        string
	FrontendURL         string

	Currency            string
	DeliveryCharge      decimal.Decimal
	PaymentDeadline     time.Duration
	ReaperInterval      time.Duration
	PaymentTimeout      time.Duration
	RequestTimeout      time.Duration
	ShutdownTimeout     time.Duration
	MaxRequestBodySize  int64
	HealthCheckInterval time.Duration
}

// Load reads the process environment. Any malformed numeric, decimal or duration value is an error.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "50060"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "shop"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         p.int("DB_PORT", 5432),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "orders"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),

		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "internal/catalog/migrations"),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeAPIURL:        getEnv("STRIPE_API_URL", ""),
		FrontendURL:         strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		Currency:            strings.ToUpper(getEnv("CURRENCY", "EUR")),
		DeliveryCharge:      p.decimal("DELIVERY_CHARGE", "10.00"),
		PaymentDeadline:     p.duration("ORDER_PAYMENT_DEADLINE", time.Hour),
		ReaperInterval:      p.duration("REAPER_INTERVAL", time.Minute),
		PaymentTimeout:      p.duration("PAYMENT_TIMEOUT", 10*time.Second),
		RequestTimeout:      p.duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:     p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize:  1 << 20, // 1MB
		HealthCheckInterval: p.duration("HEALTH_CHECK_INTERVAL", 15*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DeliveryCharge.IsNegative() {
		return fmt.Errorf("DELIVERY_CHARGE must not be negative, got %s", c.DeliveryCharge)
	}
	if !isCurrencyCode(c.Currency) {
		return fmt.Errorf("CURRENCY must be a three-letter ISO 4217 code, got %q", c.Currency)
	}
	if c.PaymentDeadline <= 0 {
		return fmt.Errorf("ORDER_PAYMENT_DEADLINE must be positive, got %s", c.PaymentDeadline)
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be positive, got %s", c.ReaperInterval)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must list at least one broker")
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) decimal(key, def string) decimal.Decimal {
	raw := getEnv(key, def)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		p.fail(key, raw, err)
		return decimal.Zero
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}
