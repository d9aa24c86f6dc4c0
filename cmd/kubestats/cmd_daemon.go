package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mchestr/kubestats/config"
	"github.com/mchestr/kubestats/internal/daemon"
	"github.com/mchestr/kubestats/storage"
	"github.com/mchestr/kubestats/telemetry"
)

var daemonConfigPath string

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the continuous scanning daemon",
	Long: `Run kubestats in daemon mode, rescanning every configured repository
on a fixed interval.

Features:
- Continuous scan loop over all configured repositories
- Prometheus metrics on /metrics
- Health checks on /healthz
- Optional OTLP export of traces and metrics
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  kubestats daemon --config kubestats.yaml`,
	RunE:    runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVarP(&daemonConfigPath, "config", "c", "kubestats.yaml", "Path to the configuration file")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(daemonConfigPath)
	if err != nil {
		return err
	}

	logger := newLogger().Logger
	if level, err := zerolog.ParseLevel(cfg.Telemetry.LogLevel); err == nil && !rootDebug {
		logger = logger.Level(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "kubestats",
		ServiceVersion: version,
		OTELEndpoint:   cfg.Telemetry.OTELEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	store, err := storage.Open(cfg.StorageDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	d, err := daemon.New(store, daemon.Config{
		Interval:     cfg.Scan.Interval,
		MetricsAddr:  cfg.Telemetry.MetricsAddr,
		Repositories: cfg.Repositories,
		ExcludeDirs:  cfg.Scan.ExcludeDirs,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	logger.Info().
		Int("repositories", len(cfg.Repositories)).
		Dur("interval", cfg.Scan.Interval).
		Str("metrics_addr", cfg.Telemetry.MetricsAddr).
		Msg("kubestats daemon starting")

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	logger.Info().Msg("daemon stopped")
	return nil
}
