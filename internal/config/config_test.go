package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "LOG_LEVEL", "IDEMPOTENCY_TTL", "OUTBOX_INTERVAL", "RATE_LIMIT_PER_MINUTE", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("expected default addr :8000, got %q", cfg.HTTPAddr)
	}
	if cfg.IdempotencyTTL != time.Hour {
		t.Errorf("expected 1h idempotency ttl, got %v", cfg.IdempotencyTTL)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Errorf("expected 60 req/min, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected redis disabled, got %q", cfg.RedisAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("OUTBOX_INTERVAL", "250ms")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.OutboxInterval != 250*time.Millisecond || cfg.RateLimitPerMinute != 5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"IDEMPOTENCY_TTL", "forever"},
		{"OUTBOX_INTERVAL", "-1s"},
		{"RATE_LIMIT_PER_MINUTE", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
