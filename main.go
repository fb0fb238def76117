package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/knitkart/fulfillment/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fulfillment",
	Short:   "Knitkart Fulfillment - packaging resolution and return/replace orchestration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	stores, err := initStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	gateway, registry := initCarrier(cfg, logger)
	orchestrator := initOrchestrator(cfg, stores, gateway, logger)

	logger.Info("Starting Knitkart Fulfillment",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Bool("postgres", cfg.UsePostgres()),
		zap.Bool("carrier_mock", cfg.ShiprocketUseMock),
	)

	srv := server.New(server.Config{
		Port:        cfg.Port,
		CarrierName: gateway.Name(),
	}, stores.Packing, orchestrator, registry, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
