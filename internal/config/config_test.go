package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "smartstock.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Inventory.LowStockThreshold != 5 || cfg.Security.BcryptCost != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Blob.Driver != "fs" || cfg.Metrics.Backend != "expvar" || cfg.Seed.Demo {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	body := strings.Join([]string{
		"storage:",
		"  driver: postgres",
		"  postgres_dsn: postgres://inv@db/smartstock",
		"inventory:",
		"  low_stock_threshold: 8",
		"seed:",
		"  demo: true",
		"blob:",
		"  driver: s3",
		"  s3:",
		"    bucket: reports",
		"    path_style: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SMARTSTOCK_INVENTORY_LOW_STOCK_THRESHOLD", "3")
	t.Setenv("SMARTSTOCK_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://inv@db/smartstock" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Inventory.LowStockThreshold != 3 {
		t.Fatalf("expected env to win, got %d", cfg.Inventory.LowStockThreshold)
	}
	if cfg.Log.Format != "json" || !cfg.Seed.Demo {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Blob.S3.Bucket != "reports" || !cfg.Blob.S3.PathStyle || cfg.Blob.S3.Region != "us-east-1" {
		t.Fatalf("unexpected s3 config %+v", cfg.Blob.S3)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	base := func() Config {
		return Config{
			Storage: StorageConfig{Driver: "sqlite"},
			Blob:    BlobConfig{Driver: "fs"},
			Log:     LogConfig{Format: "text"},
			Metrics: MetricsConfig{Backend: "none"},
		}
	}
	cases := map[string]func(*Config){
		"storage driver": func(c *Config) { c.Storage.Driver = "mysql" },
		"blob driver":    func(c *Config) { c.Blob.Driver = "gcs" },
		"s3 bucket":      func(c *Config) { c.Blob.Driver = "s3" },
		"log format":     func(c *Config) { c.Log.Format = "xml" },
		"metrics":        func(c *Config) { c.Metrics.Backend = "statsd" },
		"threshold":      func(c *Config) { c.Inventory.LowStockThreshold = -1 },
	}
	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
