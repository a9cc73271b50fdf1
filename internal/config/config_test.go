// internal/config/config_test.go
package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	yaml := []byte(`
scraper:
  allowed_hosts:
    - www.1001tracklists.com
`)
	cfg, err := LoadFromBytes(yaml)
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if cfg.Scraper.MaxConcurrency != 4 {
		t.Errorf("expected default max_concurrency 4, got %d", cfg.Scraper.MaxConcurrency)
	}
	if cfg.Scraper.MinInterval.Std() != time.Second {
		t.Errorf("expected default min_interval 1s, got %v", cfg.Scraper.MinInterval)
	}
	if cfg.Cache.MaxEntries != 1000 {
		t.Errorf("expected default cache max_entries 1000, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Catalog.Deadline.Std() != 45*time.Second {
		t.Errorf("expected default catalog deadline 45s, got %v", cfg.Catalog.Deadline)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadFromBytesExpandsEnvironment(t *testing.T) {
	os.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")
	defer os.Unsetenv("TEST_REDIS_ADDR")

	yaml := []byte(`
cache:
  redis_addr: ${TEST_REDIS_ADDR}
`)
	cfg, err := LoadFromBytes(yaml)
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if cfg.Cache.RedisAddr != "redis.internal:6379" {
		t.Errorf("expected env expansion, got %q", cfg.Cache.RedisAddr)
	}
}

func TestDurationParsing(t *testing.T) {
	yaml := []byte(`
server:
  read_timeout: 5s
scraper:
  min_interval: 250ms
cache:
  sweep_interval: 30
`)
	cfg, err := LoadFromBytes(yaml)
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if cfg.Server.ReadTimeout.Std() != 5*time.Second {
		t.Errorf("expected 5s read timeout, got %v", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Scraper.MinInterval.Std() != 250*time.Millisecond {
		t.Errorf("expected 250ms min interval, got %v", cfg.Scraper.MinInterval.Std())
	}
	// Bare integers are seconds.
	if cfg.Cache.SweepInterval.Std() != 30*time.Second {
		t.Errorf("expected 30s sweep interval, got %v", cfg.Cache.SweepInterval.Std())
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	yaml := []byte(`
server:
  read_timeout: sideways
`)
	if _, err := LoadFromBytes(yaml); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	yaml := []byte(`
logging:
  level: loud
`)
	if _, err := LoadFromBytes(yaml); err == nil {
		t.Error("expected validation error for bad log level")
	}
}
