// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings of the server. Values load from an
// optional YAML file first, then environment variables override.
type Config struct {
	Addr            string        `yaml:"addr"`
	DatabaseURL     string        `yaml:"databaseUrl"`
	RedisAddr       string        `yaml:"redisAddr"`
	RedisDB         int           `yaml:"redisDb"`
	CatalogCacheTTL time.Duration `yaml:"catalogCacheTtl"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// Load assembles the configuration from defaults, an optional CONFIG_PATH
// YAML file, and environment variables, in that order.
func Load() (Config, error) {
	cfg := Config{
		Addr:            ":8080",
		CatalogCacheTTL: 10 * time.Minute,
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("CATALOG_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parsing CATALOG_CACHE_TTL: %w", err)
		}
		cfg.CatalogCacheTTL = d
	}
	return cfg, nil
}
