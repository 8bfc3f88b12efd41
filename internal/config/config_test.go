package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "50060", cfg.GRPCPort)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "10.00", cfg.DeliveryCharge.StringFixed(2))
	assert.Equal(t, time.Hour, cfg.PaymentDeadline)
	assert.Equal(t, time.Minute, cfg.ReaperInterval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order-events", cfg.KafkaTopic)
	assert.Equal(t, 5432, cfg.DBPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DELIVERY_CHARGE", "4.50")
	t.Setenv("ORDER_PAYMENT_DEADLINE", "30m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("FRONTEND_URL", "https://shop.example/")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4.50", cfg.DeliveryCharge.StringFixed(2))
	assert.Equal(t, 30*time.Minute, cfg.PaymentDeadline)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "https://shop.example", cfg.FrontendURL)
	assert.Equal(t, 6543, cfg.DBPort)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"DB_PORT", "abc", "DB_PORT"},
		{"ORDER_PAYMENT_DEADLINE", "soon", "ORDER_PAYMENT_DEADLINE"},
		{"DELIVERY_CHARGE", "ten", "DELIVERY_CHARGE"},
		{"DELIVERY_CHARGE", "-1", "must not be negative"},
		{"REAPER_INTERVAL", "0s", "must be positive"},
		{"KAFKA_BROKERS", " , ", "at least one broker"},
		{"CURRENCY", "euro", "three-letter"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
