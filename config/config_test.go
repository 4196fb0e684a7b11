package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.OrderExpiry)
	assert.Equal(t, 24*time.Hour, cfg.TradeExpiry)
	assert.Equal(t, 10*time.Minute, cfg.OrderStallTimeout)
	assert.Equal(t, "simulated", cfg.PaymentProvider)
	assert.Equal(t, []string{"ai/detect_scalper.py"}, cfg.ScalperArgs)
	assert.False(t, cfg.PubNubEnabled())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ORDER_EXPIRY", "2h")
	t.Setenv("TRADE_EXPIRY", "not-a-duration")
	t.Setenv("CURRENCY", "EUR")
	t.Setenv("PUBLIC_URL", "https://tickets.example.com/")
	t.Setenv("SCALPER_ARGS", "-m scorer --quiet")
	t.Setenv("RATE_LIMIT", "abc")

	cfg := LoadConfig()

	assert.Equal(t, 2*time.Hour, cfg.OrderExpiry)
	assert.Equal(t, 24*time.Hour, cfg.TradeExpiry)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, "https://tickets.example.com", cfg.PublicURL)
	assert.Equal(t, []string{"-m", "scorer", "--quiet"}, cfg.ScalperArgs)
	assert.Equal(t, 30, cfg.RateLimit)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Environment: "development", PaymentProvider: "simulated", JWTSecret: "s"}
	assert.NoError(t, cfg.Validate())

	cfg.Environment = "production"
	assert.ErrorContains(t, cfg.Validate(), "only allowed in development")

	cfg.PaymentProvider = "stripe"
	assert.ErrorContains(t, cfg.Validate(), "STRIPE_SECRET_KEY")

	cfg.PaymentProvider = "paypal"
	cfg.JWTSecret = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "unknown PAYMENT_PROVIDER")
}
