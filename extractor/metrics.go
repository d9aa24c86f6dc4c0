// Package extractor derives semantic metrics and cross-resource references
// from scanned resource bodies.
package extractor

import (
	"strings"
	"time"

	"github.com/mchestr/kubestats/parser"
	"github.com/mchestr/kubestats/types"
)

// Kinds whose pod template carries container images and a replica count.
var workloadKinds = map[string]bool{
	"Deployment":  true,
	"StatefulSet": true,
	"DaemonSet":   true,
	"ReplicaSet":  true,
}

// ExtractMetrics derives the kind-specific metrics snapshot for a resource,
// or nil when the kind carries nothing worth recording.
func ExtractMetrics(resource types.ResourceData, recordedAt time.Time) *types.ResourceMetrics {
	switch {
	case resource.Kind == "HelmRelease" && strings.HasPrefix(resource.APIVersion, parser.HelmGroup):
		return helmReleaseMetrics(resource, recordedAt)
	case resource.Kind == "OCIRepository" && strings.HasPrefix(resource.APIVersion, parser.SourceGroup):
		return ociRepositoryMetrics(resource, recordedAt)
	case workloadKinds[resource.Kind] && strings.HasPrefix(resource.APIVersion, "apps/"):
		return workloadMetrics(resource, recordedAt)
	default:
		return nil
	}
}

func helmReleaseMetrics(resource types.ResourceData, recordedAt time.Time) *types.ResourceMetrics {
	metrics := &types.ResourceMetrics{RecordedAt: recordedAt}

	if chartRef, ok := resource.Body["chartRef"].(map[string]any); ok {
		// chartRef pattern: the version lives on the referenced source and
		// is filled in by cross-resource resolution.
		name, _ := chartRef["name"].(string)
		metrics.ChartName = name
		metrics.SourceRevision = name
		return metrics
	}

	chartSpec := mapAt(resource.Body, "chart", "spec")
	metrics.ChartName, _ = chartSpec["chart"].(string)
	metrics.ChartVersion, _ = chartSpec["version"].(string)

	sourceRef := mapAt(chartSpec, "sourceRef")
	refName, _ := sourceRef["name"].(string)
	switch sourceRef["kind"] {
	case "OCIRepository":
		metrics.ChartRepository = "oci://" + refName
	case "HelmRepository":
		metrics.ChartRepository = refName
	}
	metrics.SourceRevision = refName

	return metrics
}

func ociRepositoryMetrics(resource types.ResourceData, recordedAt time.Time) *types.ResourceMetrics {
	url, _ := resource.Body["url"].(string)
	return &types.ResourceMetrics{
		ChartVersion:    stringAt(resource.Body, "ref", "tag"),
		ChartRepository: url,
		RecordedAt:      recordedAt,
	}
}

func workloadMetrics(resource types.ResourceData, recordedAt time.Time) *types.ResourceMetrics {
	metrics := &types.ResourceMetrics{
		ImageVersions: map[string]string{},
		RecordedAt:    recordedAt,
	}

	if replicas, ok := asInt(resource.Body["replicas"]); ok {
		metrics.Replicas = &replicas
	}

	podSpec := mapAt(resource.Body, "template", "spec")
	containers, _ := podSpec["containers"].([]any)
	for _, entry := range containers {
		container, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := container["name"].(string)
		image, _ := container["image"].(string)
		if name != "" && image != "" {
			metrics.ImageVersions[name] = image
		}
	}

	return metrics
}

// ResolveMetricsVersions fills in chart versions for chartRef releases from
// the referenced resource's metrics within the same scan.
func ResolveMetricsVersions(resources []types.ResourceData, metrics map[string]*types.ResourceMetrics) {
	index := NewScanIndex(resources)

	for _, resource := range resources {
		if resource.Kind != "HelmRelease" {
			continue
		}
		m := metrics[resource.IdentityKey()]
		if m == nil || m.ChartVersion != "" {
			continue
		}
		chartRef, ok := resource.Body["chartRef"].(map[string]any)
		if !ok {
			continue
		}

		kind, _ := chartRef["kind"].(string)
		if kind == "" {
			kind = "OCIRepository"
		}
		name, _ := chartRef["name"].(string)
		namespace, _ := chartRef["namespace"].(string)
		if namespace == "" {
			namespace = resource.Namespace
		}

		target, ok := index.Lookup(kind, namespace, name)
		if !ok {
			continue
		}
		targetMetrics := metrics[target.IdentityKey()]
		if targetMetrics == nil || targetMetrics.ChartVersion == "" {
			continue
		}

		m.ChartVersion = targetMetrics.ChartVersion
		if m.ChartRepository == "" {
			m.ChartRepository = targetMetrics.ChartRepository
		}
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// mapAt returns the nested mapping at the given key path, or an empty map.
func mapAt(m map[string]any, path ...string) map[string]any {
	current := m
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		current = next
	}
	return current
}

// stringAt returns the string value at the given key path, or "".
func stringAt(m map[string]any, path ...string) string {
	if len(path) == 0 {
		return ""
	}
	parent := mapAt(m, path[:len(path)-1]...)
	value, _ := parent[path[len(path)-1]].(string)
	return value
}
