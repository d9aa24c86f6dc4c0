package observer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchestr/kubestats/types"
)

func TestNewScanMetrics(t *testing.T) {
	metrics, err := NewScanMetrics()
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.NotNil(t, metrics.resourcesCreated)
	assert.NotNil(t, metrics.resourcesModified)
	assert.NotNil(t, metrics.resourcesDeleted)
	assert.NotNil(t, metrics.resourcesResurrected)
	assert.NotNil(t, metrics.scanDuration)
	assert.NotNil(t, metrics.activeResources)
}

// The default meter provider is a no-op; recording must still be safe.
func TestRecordChangesDoesNotPanic(t *testing.T) {
	metrics, err := NewScanMetrics()
	require.NoError(t, err)

	resource := &types.ResourceData{
		APIVersion: "helm.toolkit.fluxcd.io/v2",
		Kind:       "HelmRelease",
		Name:       "grafana",
		Namespace:  "monitoring",
		FilePath:   "apps/grafana/hr.yaml",
	}

	changes := types.ChangeSet{
		Created:  []types.ResourceChange{{Type: types.ChangeCreated, Resource: resource}},
		Modified: []types.ResourceChange{{Type: types.ChangeModified, Resource: resource}},
		Deleted: []types.ResourceChange{{
			Type:     types.ChangeDeleted,
			Existing: &types.PersistedResource{Kind: "HelmRelease"},
		}},
		Resurrected: []types.ResourceChange{{Type: types.ChangeResurrected, Resource: resource}},
	}

	metrics.RecordChanges(context.Background(), "repo-1", changes)
}

func TestRecordScanDoesNotPanic(t *testing.T) {
	metrics, err := NewScanMetrics()
	require.NoError(t, err)

	result := types.ScanResult{Created: 2, TotalResources: 5}
	metrics.RecordScan(context.Background(), "repo-1", result, 250*time.Millisecond)
}
