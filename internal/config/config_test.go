package config

import (
	"testing"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DefaultCurrency != domain.USD {
		t.Errorf("DefaultCurrency = %s, want USD", cfg.DefaultCurrency)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("DEFAULT_CURRENCY", "sgd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.ProjectID != "my-project" {
		t.Errorf("ProjectID = %q", cfg.ProjectID)
	}
	if cfg.DefaultCurrency != domain.SGD {
		t.Errorf("DefaultCurrency = %s, want SGD (case-insensitive parse)", cfg.DefaultCurrency)
	}
}

func TestLoad_RejectsUnknownCurrency(t *testing.T) {
	t.Setenv("DEFAULT_CURRENCY", "DOGE")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported DEFAULT_CURRENCY")
	}
}
