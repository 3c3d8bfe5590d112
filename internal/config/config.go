// Package config loads service configuration from the environment, with
// optional .env support for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Config is the full service configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port string

	// ProjectID and DatasetID select the BigQuery store. When ProjectID is
	// empty the service runs on the in-memory store.
	ProjectID string
	DatasetID string

	// ReceiptBucket is the GCS bucket for uploaded receipt images. Empty
	// means in-memory object storage.
	ReceiptBucket string

	// DefaultCurrency applies when a request carries no currency.
	DefaultCurrency domain.CurrencyCode

	// Model and EmbedModel override the delegate's defaults when set.
	Model      string
	EmbedModel string

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		ProjectID:     os.Getenv("GCP_PROJECT_ID"),
		DatasetID:     getEnv("BQ_DATASET_ID", "finance_assistant"),
		ReceiptBucket: os.Getenv("RECEIPT_BUCKET"),
		Model:         os.Getenv("DELEGATE_MODEL"),
		EmbedModel:    os.Getenv("EMBED_MODEL"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	raw := getEnv("DEFAULT_CURRENCY", "USD")
	cur, ok := domain.ParseCurrency(raw)
	if !ok {
		return nil, fmt.Errorf("config.Load: unsupported DEFAULT_CURRENCY %q", raw)
	}
	cfg.DefaultCurrency = cur

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
