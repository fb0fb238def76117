package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage. Empty means in-memory stores, for local runs and tests.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Shiprocket
	ShiprocketAPIToken       string `envconfig:"SHIPROCKET_API_TOKEN"`
	ShiprocketBaseURL        string `envconfig:"SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	ShiprocketPickupLocation string `envconfig:"SHIPROCKET_PICKUP_LOCATION"`
	ShiprocketUseMock        bool   `envconfig:"SHIPROCKET_USE_MOCK" default:"false"`

	// Storefront, the order/catalog service this core asks for item and
	// address data. Empty disables the HTTP directory (mock data is used).
	StorefrontBaseURL string `envconfig:"STOREFRONT_BASE_URL"`
	StorefrontAPIKey  string `envconfig:"STOREFRONT_API_KEY"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"knitkart-fulfillment"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// UsePostgres reports whether persistent storage is configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("shiprocket.mock", c.ShiprocketUseMock),
		attribute.Bool("storage.postgres", c.UsePostgres()),
	}
}
