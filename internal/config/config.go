package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const placeholderStripeKey = "sk_test_51QEXAMPLE"

type Config struct {
	HTTPPort           string
	GRPCHealthPort     string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	Database DatabaseConfig
	Cart     CartConfig
	Stripe   StripeConfig
	Kafka    KafkaConfig
}

type DatabaseConfig struct {
	Driver         string // postgres | sqlite
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SQLitePath     string
	MigrationsPath string
}

type CartConfig struct {
	Backend    string // redis | mongo
	RedisAddr  string
	MongoURI   string
	MongoDB    string
	SessionTTL time.Duration
}

type StripeConfig struct {
	SecretKey        string
	PublishableKey   string
	WebhookSecret    string
	APIBaseURL       string
	Currency         string
	Timeout          time.Duration
	WebhookTolerance time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	port, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", 14*24*time.Hour)
	if err != nil {
		return nil, err
	}
	stripeTimeout, err := getEnvDuration("STRIPE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	tolerance, err := getEnvDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCHealthPort:     getEnv("GRPC_HEALTH_PORT", "50051"),
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "sqlite"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           port,
			User:           getEnv("DB_USER", "shop"),
			Password:       getEnv("DB_PASSWORD", "shop"),
			Name:           getEnv("DB_NAME", "shop"),
			SQLitePath:     getEnv("SQLITE_PATH", "shop.db"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),
		},
		Cart: CartConfig{
			Backend:    getEnv("CART_BACKEND", "redis"),
			RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
			MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDB:    getEnv("MONGO_DB", "shop"),
			SessionTTL: sessionTTL,
		},
		Stripe: StripeConfig{
			SecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
			PublishableKey:   os.Getenv("STRIPE_PUBLISHABLE_KEY"),
			WebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
			APIBaseURL:       getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
			Currency:         strings.ToLower(getEnv("CURRENCY", "usd")),
			Timeout:          stripeTimeout,
			WebhookTolerance: tolerance,
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("KAFKA_TOPIC", "shop-events"),
			PollInterval: pollInterval,
		},
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}
	switch c.Cart.Backend {
	case "redis", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown CART_BACKEND %q", c.Cart.Backend))
	}
	if c.Cart.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Stripe.Currency == "" {
		errs = append(errs, errors.New("CURRENCY must not be empty"))
	}
	return errors.Join(errs...)
}

// Configured reports whether real gateway credentials are present.
func (s StripeConfig) Configured() bool {
	key := strings.TrimSpace(s.SecretKey)
	return key != "" && !strings.HasPrefix(key, placeholderStripeKey)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
