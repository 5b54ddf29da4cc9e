package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server  ServerConfig  `envPrefix:"SERVER_"`
	OTLP    OTLPConfig
	Catalog CatalogConfig `envPrefix:"CATALOG_"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

type OTLPConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"catalog-manager"`
	Environment string `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"debug"`
}

// CatalogConfig configures the catalog store and its collaborators.
type CatalogConfig struct {
	SourceURL     string        `env:"SOURCE_URL" envDefault:"https://fakestoreapi.com/products"`
	SourceTimeout time.Duration `env:"SOURCE_TIMEOUT" envDefault:"10s"`
	SourceRetries int           `env:"SOURCE_RETRIES" envDefault:"2"`
	StoragePath   string        `env:"STORAGE_PATH" envDefault:"catalog.db"`
	PageSize      int           `env:"PAGE_SIZE" envDefault:"8"`
	PopularCount  int           `env:"POPULAR_COUNT" envDefault:"4"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Catalog.PageSize <= 0 {
		return nil, fmt.Errorf("CATALOG_PAGE_SIZE must be positive, got %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.SourceRetries < 0 {
		return nil, fmt.Errorf("CATALOG_SOURCE_RETRIES must not be negative, got %d", cfg.Catalog.SourceRetries)
	}
	return cfg, nil
}
