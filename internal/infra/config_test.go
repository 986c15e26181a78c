package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_BASE_URL", "")
	t.Setenv("BATCH_ITEM_DELAY_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if cfg.GeminiBaseURL != "https://generativelanguage.googleapis.com/v1beta" {
		t.Fatalf("GeminiBaseURL mismatch: got %q", cfg.GeminiBaseURL)
	}
	if cfg.ItemDelay != 5*time.Second {
		t.Fatalf("ItemDelay mismatch: got %s", cfg.ItemDelay)
	}
	if cfg.ItemTimeout != 120*time.Second {
		t.Fatalf("ItemTimeout mismatch: got %s", cfg.ItemTimeout)
	}
}

func TestLoadConfigHonorsBatchOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("BATCH_ITEM_DELAY_SECONDS", "2")
	t.Setenv("BATCH_ITEM_TIMEOUT_SECONDS", "30")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ItemDelay != 2*time.Second {
		t.Fatalf("ItemDelay mismatch: got %s", cfg.ItemDelay)
	}
	if cfg.ItemTimeout != 30*time.Second {
		t.Fatalf("ItemTimeout mismatch: got %s", cfg.ItemTimeout)
	}
}
