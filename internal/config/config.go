package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKER" envDefault:"localhost:9092" envSeparator:","`
	IngestTopic   string   `env:"INGEST_TOPIC" envDefault:"test-results"`
	ResultsTopic  string   `env:"RESULTS_TOPIC" envDefault:"processed-results"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"result-processor"`

	// PostgreSQL
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Business rule
	PassThreshold float64 `env:"PASS_THRESHOLD" envDefault:"80.0"`

	// HTTP listeners: reporting API + websocket, and the ops endpoint
	APIAddr string `env:"API_ADDR" envDefault:":8000"`
	OpsAddr string `env:"OPS_ADDR" envDefault:":8081"`

	// Broker reconnect/retry cadence
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"5s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables. A .env file is loaded
// first if present, for local development.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error, fallback to env vars

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
