package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP_PORT)
	assert.Equal(t, "payments.confirmed", cfg.KAFKA_PAYMENT_TOPIC)
	assert.Equal(t, "notifications.email", cfg.KAFKA_NOTIFY_TOPIC)
	assert.Equal(t, time.Hour, cfg.DELAY_PAYMENT)
	assert.Equal(t, 168*time.Hour, cfg.DELAY_DELIVERED)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DELAY_PAYMENT", "5s")
	t.Setenv("DELAY_SHIPPED", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.HTTP_PORT)
	assert.Equal(t, 5*time.Second, cfg.DELAY_PAYMENT)
	assert.Equal(t, 72*time.Hour, cfg.DELAY_SHIPPED, "bad duration falls back to default")
}
