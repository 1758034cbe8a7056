// ABOUTME: serve command: runs the MCP server over stdio
// ABOUTME: Wires config, logging, telemetry and the optional metrics endpoint

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/logging"
	"github.com/harper/mailcal-mcp/pkg/server"
)

func newServeCmd(flags *rootFlags, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		Long: `Start the MCP server on stdin/stdout. Logs go to stderr.

The calendar directory is loaded in the background on startup; use the
calendar_refresh_directory tool to reload it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, version)
		},
	}
}

func runServe(cmd *cobra.Command, flags *rootFlags, version string) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)
	logger.Info("starting mailcal-mcp", slog.String("version", version), slog.Any("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instCfg := cfg.Instrumentation
	instCfg.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		if handler := provider.MetricsHandler(); handler != nil {
			if err := server.NewMetricsServer(cfg.Server.MetricsAddr, handler, logger).Start(ctx); err != nil {
				return fmt.Errorf("failed to start metrics server: %w", err)
			}
		} else {
			logger.Warn("metrics_addr is set but the prometheus exporter is not active",
				slog.String("metrics_addr", cfg.Server.MetricsAddr))
		}
	}

	srv, err := server.NewFromConfig(ctx, cfg, provider.Metrics(), logger, version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("mailcal-mcp stopped")
	return nil
}
