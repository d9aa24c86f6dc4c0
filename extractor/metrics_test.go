package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchestr/kubestats/types"
)

var now = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func helmRelease(name string, body map[string]any) types.ResourceData {
	return types.ResourceData{
		APIVersion: "helm.toolkit.fluxcd.io/v2",
		Kind:       "HelmRelease",
		Name:       name,
		FilePath:   name + "-hr.yaml",
		Body:       body,
	}
}

func ociRepository(name, tag, url string) types.ResourceData {
	return types.ResourceData{
		APIVersion: "source.toolkit.fluxcd.io/v1",
		Kind:       "OCIRepository",
		Name:       name,
		FilePath:   name + "-oci.yaml",
		Version:    tag,
		Body: map[string]any{
			"url": url,
			"ref": map[string]any{"tag": tag},
		},
	}
}

func TestExtractMetricsChartSpecPattern(t *testing.T) {
	hr := helmRelease("grafana", map[string]any{
		"chart": map[string]any{
			"spec": map[string]any{
				"chart":   "grafana",
				"version": "9.2.1",
				"sourceRef": map[string]any{
					"kind": "HelmRepository",
					"name": "grafana-charts",
				},
			},
		},
	})

	m := ExtractMetrics(hr, now)
	require.NotNil(t, m)
	assert.Equal(t, "grafana", m.ChartName)
	assert.Equal(t, "9.2.1", m.ChartVersion)
	assert.Equal(t, "grafana-charts", m.ChartRepository)
	assert.Equal(t, "grafana-charts", m.SourceRevision)
}

func TestExtractMetricsChartRefPatternLeavesVersionEmpty(t *testing.T) {
	hr := helmRelease("grafana", map[string]any{
		"chartRef": map[string]any{"kind": "OCIRepository", "name": "grafana"},
	})

	m := ExtractMetrics(hr, now)
	require.NotNil(t, m)
	assert.Equal(t, "grafana", m.ChartName)
	assert.Empty(t, m.ChartVersion)
}

func TestExtractMetricsOCIRepository(t *testing.T) {
	m := ExtractMetrics(ociRepository("grafana", "9.2.1", "oci://ghcr.io/grafana/helm-charts/grafana"), now)
	require.NotNil(t, m)
	assert.Equal(t, "9.2.1", m.ChartVersion)
	assert.Equal(t, "oci://ghcr.io/grafana/helm-charts/grafana", m.ChartRepository)
}

func TestExtractMetricsDeployment(t *testing.T) {
	deployment := types.ResourceData{
		APIVersion: "apps/v1",
		Kind:       "Deployment",
		Name:       "web",
		FilePath:   "web.yaml",
		Body: map[string]any{
			"replicas": 3,
			"template": map[string]any{
				"spec": map[string]any{
					"containers": []any{
						map[string]any{"name": "app", "image": "nginx:1.27"},
						map[string]any{"name": "sidecar", "image": "envoy:1.31"},
						map[string]any{"name": "unnamed"},
					},
				},
			},
		},
	}

	m := ExtractMetrics(deployment, now)
	require.NotNil(t, m)
	require.NotNil(t, m.Replicas)
	assert.Equal(t, 3, *m.Replicas)
	assert.Equal(t, map[string]string{
		"app":     "nginx:1.27",
		"sidecar": "envoy:1.31",
	}, m.ImageVersions)
}

func TestExtractMetricsUnknownKind(t *testing.T) {
	cm := types.ResourceData{APIVersion: "v1", Kind: "ConfigMap", Name: "cm", FilePath: "cm.yaml"}
	assert.Nil(t, ExtractMetrics(cm, now))
}

func TestResolveMetricsVersionsFromOCIRepository(t *testing.T) {
	oci := ociRepository("grafana", "9.2.1", "oci://ghcr.io/grafana/helm-charts/grafana")
	hr := helmRelease("grafana", map[string]any{
		"chartRef": map[string]any{"kind": "OCIRepository", "name": "grafana"},
	})

	resources := []types.ResourceData{oci, hr}
	metrics := map[string]*types.ResourceMetrics{
		oci.IdentityKey(): ExtractMetrics(oci, now),
		hr.IdentityKey():  ExtractMetrics(hr, now),
	}

	ResolveMetricsVersions(resources, metrics)

	resolved := metrics[hr.IdentityKey()]
	assert.Equal(t, "9.2.1", resolved.ChartVersion)
	assert.Equal(t, "oci://ghcr.io/grafana/helm-charts/grafana", resolved.ChartRepository)
}

func TestResolveMetricsVersionsKeepsLiteralVersion(t *testing.T) {
	hr := helmRelease("grafana", map[string]any{
		"chart": map[string]any{
			"spec": map[string]any{"chart": "grafana", "version": "8.0.0"},
		},
	})
	oci := ociRepository("grafana", "9.2.1", "")

	metrics := map[string]*types.ResourceMetrics{
		hr.IdentityKey():  ExtractMetrics(hr, now),
		oci.IdentityKey(): ExtractMetrics(oci, now),
	}
	ResolveMetricsVersions([]types.ResourceData{hr, oci}, metrics)

	assert.Equal(t, "8.0.0", metrics[hr.IdentityKey()].ChartVersion)
}
