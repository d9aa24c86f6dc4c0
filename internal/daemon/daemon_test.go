package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mchestr/kubestats/config"
	"github.com/mchestr/kubestats/storage"
)

const deployment = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  namespace: default
spec:
  replicas: 2
`

func newTestDaemon(t *testing.T, interval time.Duration, repos []config.Repository) (*Daemon, *storage.BoltStore) {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	daemon, err := New(store, Config{
		Interval:     interval,
		MetricsAddr:  "127.0.0.1:0",
		Repositories: repos,
	}, zerolog.Nop())
	require.NoError(t, err)
	return daemon, store
}

func TestNewDaemon(t *testing.T) {
	daemon, _ := newTestDaemon(t, time.Minute, nil)
	assert.NotNil(t, daemon.orchestrator)
	assert.NotNil(t, daemon.scanMetrics)
	assert.Equal(t, time.Minute, daemon.cfg.Interval)
}

func TestDaemonScansOnStart(t *testing.T) {
	workdir := t.TempDir()
	path := filepath.Join(workdir, "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(deployment), 0o644))

	daemon, store := newTestDaemon(t, time.Hour, []config.Repository{
		{ID: "repo-1", Path: workdir},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- daemon.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return daemon.ScanCount() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	active, err := store.GetActiveResources(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDaemonContinuesAfterScanFailure(t *testing.T) {
	goodDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(goodDir, "deploy.yaml"), []byte(deployment), 0o644))

	daemon, store := newTestDaemon(t, time.Hour, []config.Repository{
		{ID: "broken", Path: filepath.Join(goodDir, "missing")},
		{ID: "repo-1", Path: goodDir},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- daemon.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return daemon.ScanCount() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	// The broken repository was recorded as failed; the good one scanned.
	ctx = context.Background()
	status, err := store.GetScanStatus(ctx, "broken")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.NotEmpty(t, status.Error)

	active, err := store.GetActiveResources(ctx, "repo-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDaemonHealth(t *testing.T) {
	daemon, _ := newTestDaemon(t, time.Minute, nil)
	health := daemon.Health()
	assert.Equal(t, "healthy", health.Status)
	assert.GreaterOrEqual(t, health.Uptime, int64(0))
}

func TestDaemonRecordsChangeCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	workdir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "deploy.yaml"), []byte(deployment), 0o644))

	daemon, _ := newTestDaemon(t, time.Hour, []config.Repository{
		{ID: "repo-1", Path: workdir},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- daemon.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return daemon.ScanCount() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(1), counterValue(rm, "kubestats_resources_created_total"))
	assert.Equal(t, int64(0), counterValue(rm, "kubestats_resources_modified_total"))
}

func counterValue(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestDaemonHonorsExcludeDirs(t *testing.T) {
	workdir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workdir, "generated"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "generated", "deploy.yaml"), []byte(deployment), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "deploy.yaml"), []byte(deployment), 0o644))

	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	daemon, err := New(store, Config{
		Interval:     time.Hour,
		MetricsAddr:  "127.0.0.1:0",
		Repositories: []config.Repository{{ID: "repo-1", Path: workdir}},
		ExcludeDirs:  []string{"generated"},
	}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- daemon.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return daemon.ScanCount() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	active, err := store.GetActiveResources(context.Background(), "repo-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	for key := range active {
		assert.NotContains(t, key, "generated/")
	}
}
