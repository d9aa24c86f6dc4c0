// Package daemon runs the continuous scanning loop and serves metrics.
package daemon

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mchestr/kubestats/config"
	"github.com/mchestr/kubestats/observer"
	"github.com/mchestr/kubestats/orchestrator"
	"github.com/mchestr/kubestats/scanner"
	"github.com/mchestr/kubestats/telemetry"
)

// Config holds daemon configuration
type Config struct {
	Interval     time.Duration
	MetricsAddr  string
	Repositories []config.Repository
	ExcludeDirs  []string
}

// Daemon rescans every configured repository on a fixed interval.
type Daemon struct {
	cfg          Config
	orchestrator *orchestrator.Orchestrator
	scanMetrics  *observer.ScanMetrics
	logger       zerolog.Logger
	startTime    time.Time
	scanCount    atomic.Int64
}

// New creates a daemon over the given store.
func New(store orchestrator.Store, cfg Config, logger zerolog.Logger) (*Daemon, error) {
	scanMetrics, err := observer.NewScanMetrics()
	if err != nil {
		return nil, err
	}

	scan := scanner.NewWithExcludes(logger, cfg.ExcludeDirs)

	return &Daemon{
		cfg:          cfg,
		orchestrator: orchestrator.NewWithScanner(store, scan, logger),
		scanMetrics:  scanMetrics,
		logger:       logger,
		startTime:    time.Now(),
	}, nil
}

// Start runs the scan loop until ctx is cancelled. An immediate full pass
// precedes the ticker so a fresh daemon is useful right away.
func (d *Daemon) Start(ctx context.Context) error {
	server := d.startMetricsServer()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	d.scanAll(ctx)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.scanAll(ctx)
		}
	}
}

func (d *Daemon) scanAll(ctx context.Context) {
	for _, repo := range d.cfg.Repositories {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		result, err := d.orchestrator.ScanRepository(ctx, repo.ID, repo.Path)
		if err != nil {
			d.logger.Error().
				Err(err).
				Str("repository_id", repo.ID).
				Msg("repository scan failed")
			continue
		}

		d.scanMetrics.RecordChanges(ctx, repo.ID, result.Changes)
		d.scanMetrics.RecordScan(ctx, repo.ID, *result, time.Since(start))
		d.scanCount.Add(1)
	}
}

func (d *Daemon) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	if telemetry.PrometheusRegistry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              d.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return server
}

// ScanCount returns the number of completed repository scans.
func (d *Daemon) ScanCount() int64 {
	return d.scanCount.Load()
}

// Health reports daemon liveness.
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status: "healthy",
		Uptime: int64(time.Since(d.startTime).Seconds()),
	}
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status string
	Uptime int64
}
