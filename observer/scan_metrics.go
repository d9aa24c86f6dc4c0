// Package observer records scan outcomes as OTEL metrics.
package observer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mchestr/kubestats/types"
)

// ScanMetrics records per-scan change counts and timings.
type ScanMetrics struct {
	meter                metric.Meter
	resourcesCreated     metric.Int64Counter
	resourcesModified    metric.Int64Counter
	resourcesDeleted     metric.Int64Counter
	resourcesResurrected metric.Int64Counter
	scanDuration         metric.Float64Histogram
	activeResources      metric.Int64Gauge
}

// NewScanMetrics creates the metrics observer.
func NewScanMetrics() (*ScanMetrics, error) {
	meter := otel.Meter("kubestats")

	created, err := meter.Int64Counter(
		"kubestats_resources_created_total",
		metric.WithDescription("Total resources created"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	modified, err := meter.Int64Counter(
		"kubestats_resources_modified_total",
		metric.WithDescription("Total resources modified"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	deleted, err := meter.Int64Counter(
		"kubestats_resources_deleted_total",
		metric.WithDescription("Total resources deleted"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	resurrected, err := meter.Int64Counter(
		"kubestats_resources_resurrected_total",
		metric.WithDescription("Total resources resurrected"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"kubestats_scan_duration_seconds",
		metric.WithDescription("Repository scan duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	active, err := meter.Int64Gauge(
		"kubestats_active_resources",
		metric.WithDescription("Active resources tracked per repository"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge: %w", err)
	}

	return &ScanMetrics{
		meter:                meter,
		resourcesCreated:     created,
		resourcesModified:    modified,
		resourcesDeleted:     deleted,
		resourcesResurrected: resurrected,
		scanDuration:         duration,
		activeResources:      active,
	}, nil
}

// RecordChanges records a scan's change set.
func (m *ScanMetrics) RecordChanges(ctx context.Context, repositoryID string, changes types.ChangeSet) {
	for _, change := range changes.All() {
		m.recordChange(ctx, repositoryID, change)
	}
}

func (m *ScanMetrics) recordChange(ctx context.Context, repositoryID string, change types.ResourceChange) {
	attrs := metric.WithAttributes(
		attribute.String("repository_id", repositoryID),
		attribute.String("kind", change.Kind()),
	)

	switch change.Type {
	case types.ChangeCreated:
		m.resourcesCreated.Add(ctx, 1, attrs)
	case types.ChangeModified:
		m.resourcesModified.Add(ctx, 1, attrs)
	case types.ChangeDeleted:
		m.resourcesDeleted.Add(ctx, 1, attrs)
	case types.ChangeResurrected:
		m.resourcesResurrected.Add(ctx, 1, attrs)
	}
}

// RecordScan records the summary of one completed scan.
func (m *ScanMetrics) RecordScan(ctx context.Context, repositoryID string, result types.ScanResult, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("repository_id", repositoryID),
	)
	m.scanDuration.Record(ctx, duration.Seconds(), attrs)
	m.activeResources.Record(ctx, int64(result.TotalResources), attrs)
}
