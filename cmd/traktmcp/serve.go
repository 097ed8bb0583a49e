package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localrivet/traktmcp"
	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/logger"
	"github.com/localrivet/traktmcp/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := setupLogging(cmd, cfg)
	log.Info("traktmcp MCP server starting", "config", cfg.GetConfigPath())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "traktmcp", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("Failed to flush traces", "error", err)
		}
	}()

	srv, err := traktmcp.NewServer(ctx, traktmcp.ServerOptions{
		Config:  cfg,
		Logger:  log,
		Metrics: telemetry.DefaultMetrics(),
	})
	if err != nil {
		return err
	}
	defer stopServer(log, srv)

	log.Info("Serving Trakt tools", "base_url", srv.GetConfig().Trakt.BaseURL, "journal", srv.GetConfig().Journal.Path)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}

// stopServer stops srv and logs a failure instead of dropping it.
func stopServer(log *slog.Logger, srv interface{ Stop() error }) {
	if err := srv.Stop(); err != nil {
		log.Warn("Failed to stop server", "error", err)
	}
}

// loadConfig reads the config file named by --config, or the default one,
// and overlays the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load()
	}
	return config.LoadWithPath(path)
}

// setupLogging installs the default logger. Flags win over the config.
func setupLogging(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.Logging.Level
	}
	format, _ := cmd.Flags().GetString("log-format")
	if format == "" {
		format = cfg.Logging.Format
	}
	return logger.Setup(level, format)
}
