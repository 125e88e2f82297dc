package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	os.Setenv("STORE_PREFIX", "db/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Redis.Host == "" || cfg.Store.Prefix == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.Store.ListLimit <= 0 {
		t.Fatalf("list limit default missing: %+v", cfg.Store)
	}
	if cfg.Store.Timeout <= 0 {
		t.Fatalf("store timeout default missing: %+v", cfg.Store)
	}
}
