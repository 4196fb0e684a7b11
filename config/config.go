package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	PublicURL   string

	// Logging
	LogLevel  string
	LogFormat string

	// Database configuration; empty DatabaseURL uses the embedded SQLite database
	DatabaseURL string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	PaymentChannel     string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Payments
	PaymentProvider     string
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	CheckoutSessionTTL  time.Duration

	// Timeout configuration
	OrderExpiry       time.Duration
	TradeExpiry       time.Duration
	OrderStallTimeout time.Duration

	// Scalper scorer
	ScalperCommand     string
	ScalperArgs        []string
	ScalperTimeout     time.Duration
	ScalperConcurrency int

	// Rate limiting
	RateLimit       int
	RateLimitWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

// LoadConfig reads configuration from the environment, after loading a .env
// file when one is present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		PublicURL:   strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:5173"), "/"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-marketplace"),
		PaymentChannel:     getEnv("PAYMENT_CHANNEL", "payment-notifications"),

		// Auth
		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvAsDuration("TOKEN_TTL", "24h"),

		// Payments
		PaymentProvider:     getEnv("PAYMENT_PROVIDER", "simulated"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		Currency:            strings.ToLower(getEnv("CURRENCY", "usd")),
		CheckoutSessionTTL:  getEnvAsDuration("CHECKOUT_SESSION_TTL", "24h"),

		// Timeouts
		OrderExpiry:       getEnvAsDuration("ORDER_EXPIRY", "24h"),
		TradeExpiry:       getEnvAsDuration("TRADE_EXPIRY", "24h"),
		OrderStallTimeout: getEnvAsDuration("ORDER_STALL_TIMEOUT", "10m"),

		// Scalper
		ScalperCommand:     getEnv("SCALPER_COMMAND", "python3"),
		ScalperArgs:        getEnvAsList("SCALPER_ARGS", "ai/detect_scalper.py"),
		ScalperTimeout:     getEnvAsDuration("SCALPER_TIMEOUT", "5s"),
		ScalperConcurrency: getEnvAsInt("SCALPER_CONCURRENCY", 4),

		// Rate limiting
		RateLimit:       getEnvAsInt("RATE_LIMIT", 30),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

// Validate reports settings that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.PaymentProvider {
	case "stripe":
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required for the stripe provider"))
		}
	case "simulated":
		if c.Environment != "development" {
			errs = append(errs, errors.New("the simulated payment provider is only allowed in development"))
		}
	default:
		errs = append(errs, errors.New("unknown PAYMENT_PROVIDER "+strconv.Quote(c.PaymentProvider)))
	}
	return errors.Join(errs...)
}

// PubNubEnabled reports whether realtime keys are configured.
func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a whitespace separated value.
func getEnvAsList(key string, defaultValue string) []string {
	return strings.Fields(getEnv(key, defaultValue))
}
