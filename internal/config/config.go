// Package config loads runtime configuration from an optional YAML file and
// SMARTSTOCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SMARTSTOCK_STORAGE_DRIVER.
const EnvPrefix = "SMARTSTOCK"

// StorageConfig selects the persistence backend and its connection settings.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// S3Config addresses the bucket reports are archived to when blob.driver is s3.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// BlobConfig selects where exported reports are stored.
type BlobConfig struct {
	Driver string   `mapstructure:"driver"`
	FSRoot string   `mapstructure:"fs_root"`
	S3     S3Config `mapstructure:"s3"`
}

// LogConfig sets the slog level and handler format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig tunes credential hashing.
type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// InventoryConfig holds inventory rules such as the low stock threshold.
type InventoryConfig struct {
	LowStockThreshold int `mapstructure:"low_stock_threshold"`
}

// SeedConfig controls first-run provisioning.
type SeedConfig struct {
	Demo bool `mapstructure:"demo"`
}

// MetricsConfig selects the metrics backend and the optional listen address.
type MetricsConfig struct {
	Backend string `mapstructure:"backend"`
	Listen  string `mapstructure:"listen"`
}

// Config is the fully resolved application configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

var defaults = map[string]any{
	"storage.driver":                "sqlite",
	"storage.sqlite_path":           "smartstock.db",
	"storage.postgres_dsn":          "",
	"blob.driver":                   "fs",
	"blob.fs_root":                  "reports",
	"blob.s3.bucket":                "",
	"blob.s3.region":                "us-east-1",
	"blob.s3.endpoint":              "",
	"blob.s3.path_style":            false,
	"log.level":                     "info",
	"log.format":                    "text",
	"security.bcrypt_cost":          10,
	"inventory.low_stock_threshold": 5,
	"seed.demo":                     false,
	"metrics.backend":               "expvar",
	"metrics.listen":                "",
}

// Load resolves configuration. An explicit path must exist; with an empty
// path a smartstock.yaml in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path == "" {
		v.SetConfigName("smartstock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects unknown drivers and out-of-range values.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return errors.New("config: blob.s3.bucket is required when blob.driver is s3")
		}
	default:
		return fmt.Errorf("config: unknown blob.driver %q", c.Blob.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	switch c.Metrics.Backend {
	case "expvar", "prometheus", "none":
	default:
		return fmt.Errorf("config: unknown metrics.backend %q", c.Metrics.Backend)
	}
	if c.Inventory.LowStockThreshold < 0 {
		return fmt.Errorf("config: inventory.low_stock_threshold must be >= 0, got %d", c.Inventory.LowStockThreshold)
	}
	return nil
}
