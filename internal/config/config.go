package config

import (
	"os"
	"time"
)

type Config struct {
	HTTP_PORT string `env:"HTTP_PORT"`
	DB_STRING string `env:"DB_STRING"`

	KAFKA_BROKERS       string `env:"KAFKA_BROKERS"`
	KAFKA_PAYMENT_TOPIC string `env:"KAFKA_PAYMENT_TOPIC"`
	KAFKA_GROUP_ID      string `env:"KAFKA_GROUP_ID"`
	KAFKA_NOTIFY_TOPIC  string `env:"KAFKA_NOTIFY_TOPIC"`

	// Delays for the automatic fulfillment progression. Overridable so a
	// demo instance can walk an order through its lifecycle in seconds.
	DELAY_PAYMENT    time.Duration `env:"DELAY_PAYMENT"`
	DELAY_PROCESSING time.Duration `env:"DELAY_PROCESSING"`
	DELAY_SHIPPED    time.Duration `env:"DELAY_SHIPPED"`
	DELAY_DELIVERED  time.Duration `env:"DELAY_DELIVERED"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT: os.Getenv("HTTP_PORT"),
		DB_STRING: os.Getenv("DB_STRING"),

		KAFKA_BROKERS:       os.Getenv("KAFKA_BROKERS"),
		KAFKA_PAYMENT_TOPIC: os.Getenv("KAFKA_PAYMENT_TOPIC"),
		KAFKA_GROUP_ID:      os.Getenv("KAFKA_GROUP_ID"),
		KAFKA_NOTIFY_TOPIC:  os.Getenv("KAFKA_NOTIFY_TOPIC"),

		DELAY_PAYMENT:    durationEnv("DELAY_PAYMENT", time.Hour),
		DELAY_PROCESSING: durationEnv("DELAY_PROCESSING", 24*time.Hour),
		DELAY_SHIPPED:    durationEnv("DELAY_SHIPPED", 72*time.Hour),
		DELAY_DELIVERED:  durationEnv("DELAY_DELIVERED", 168*time.Hour),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.KAFKA_BROKERS == "" {
		cfg.KAFKA_BROKERS = "localhost:9092"
	}
	if cfg.KAFKA_PAYMENT_TOPIC == "" {
		cfg.KAFKA_PAYMENT_TOPIC = "payments.confirmed"
	}
	if cfg.KAFKA_GROUP_ID == "" {
		cfg.KAFKA_GROUP_ID = "aqua-orders"
	}
	if cfg.KAFKA_NOTIFY_TOPIC == "" {
		cfg.KAFKA_NOTIFY_TOPIC = "notifications.email"
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
