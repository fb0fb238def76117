package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/knitkart/fulfillment/internal/config"
	"github.com/knitkart/fulfillment/internal/storefront"
	"github.com/knitkart/fulfillment/internal/telemetry"
	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/knitkart/fulfillment/pkg/carrier/mock"
	"github.com/knitkart/fulfillment/pkg/carrier/shiprocket"
	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/knitkart/fulfillment/pkg/returns"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

// stores bundles the two storage layers behind one lifecycle.
type stores struct {
	Packing packing.Store
	Returns returns.Store
	db      *sql.DB
}

func (s *stores) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func initStores(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (*stores, error) {
	if !cfg.UsePostgres() {
		logger.Warn("No DATABASE_URL configured, using in-memory stores")
		return &stores{
			Packing: packing.NewMemoryStore(),
			Returns: returns.NewMemoryStore(),
		}, nil
	}

	packingStore, err := packing.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := packingStore.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	db := packingStore.DB()
	returnsStore := returns.NewPostgresStoreWithDB(db)
	if err := returnsStore.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	return &stores{
		Packing: packingStore,
		Returns: returnsStore,
		db:      db,
	}, nil
}

func initCarrier(cfg *config.Config, logger *otelzap.Logger) (carrier.Gateway, *carrier.Registry) {
	registry := carrier.NewRegistry()

	var gateway carrier.Gateway
	if cfg.ShiprocketAPIToken == "" && !cfg.ShiprocketUseMock {
		logger.Warn("No Shiprocket token configured, using mock gateway")
		gateway = mock.New("shiprocket")
	} else {
		tracer := otel.GetTracerProvider().Tracer(cfg.ServiceName)
		gateway = shiprocket.New(shiprocket.Config{
			APIToken:       cfg.ShiprocketAPIToken,
			BaseURL:        cfg.ShiprocketBaseURL,
			PickupLocation: cfg.ShiprocketPickupLocation,
			UseMock:        cfg.ShiprocketUseMock,
		}, logger, tracer)
	}

	resilient := carrier.WithResilience(gateway, logger)
	registry.Register(resilient)
	return resilient, registry
}

func initOrchestrator(cfg *config.Config, s *stores, gateway carrier.Gateway, logger *otelzap.Logger) *returns.Orchestrator {
	var (
		directory returns.OrderDirectory
		stock     returns.StockChecker
	)
	if cfg.StorefrontBaseURL != "" {
		client := storefront.New(storefront.Config{
			BaseURL: cfg.StorefrontBaseURL,
			APIKey:  cfg.StorefrontAPIKey,
		})
		directory = client
		stock = client
	} else {
		logger.Warn("No STOREFRONT_BASE_URL configured, using fixture directory")
		directory = storefront.NewFixtureDirectory()
	}

	orch := returns.NewOrchestrator(
		s.Returns,
		packing.NewResolver(s.Packing),
		directory,
		gateway,
		stock,
		logger,
	)
	orch.PickupLabel = cfg.ShiprocketPickupLocation
	return orch
}
