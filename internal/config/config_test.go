package config

import (
	"testing"
	"time"
)

func TestEnvStrFallback(t *testing.T) {
	// TEST_STR_MISSING is not set.
	if v := envStr("TEST_STR_MISSING", "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %q", v)
	}
	t.Setenv("TEST_STR", "value")
	if v := envStr("TEST_STR", "fallback"); v != "value" {
		t.Fatalf("expected value, got %q", v)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if v := envInt("TEST_INT", 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	t.Setenv("TEST_INT_BAD", "abc")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Fatalf("expected fallback 7 for invalid value, got %d", v)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "2s")
	if v := envDuration("TEST_DUR", time.Second); v != 2*time.Second {
		t.Fatalf("expected 2s, got %s", v)
	}
	if v := envDuration("TEST_DUR_MISSING", 5*time.Second); v != 5*time.Second {
		t.Fatalf("expected fallback 5s, got %s", v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RelayBatchSize != 25 {
		t.Fatalf("expected default batch size 25, got %d", cfg.RelayBatchSize)
	}
	if cfg.MongoDatabase != "agent_metadata_db" {
		t.Fatalf("unexpected default database: %q", cfg.MongoDatabase)
	}
	if cfg.SearchDepth != "advanced" {
		t.Fatalf("unexpected default search depth: %q", cfg.SearchDepth)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.RelayBatchSize = 0 }},
		{"batch size over firehose limit", func(c *Config) { c.RelayBatchSize = 501 }},
		{"negative retries", func(c *Config) { c.RelayMaxRetries = -1 }},
		{"unknown search depth", func(c *Config) { c.SearchDepth = "deep" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
