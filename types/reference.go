package types

import "time"

// ReferenceType names the structural pattern a reference was declared with.
type ReferenceType string

const (
	// ReferenceChartRef is a HelmRelease spec.chartRef pointer.
	ReferenceChartRef ReferenceType = "chartRef"
	// ReferenceSourceRef is a sourceRef pointer (HelmRelease chart spec or
	// Kustomization).
	ReferenceSourceRef ReferenceType = "sourceRef"
)

// ResourceReference is a declared pointer from one resource to another,
// e.g. a HelmRelease referencing its chart's OCIRepository.
type ResourceReference struct {
	ID               string `json:"id"`
	RepositoryID     string `json:"repository_id"`
	SourceResourceID string `json:"source_resource_id,omitempty"`
	TargetResourceID string `json:"target_resource_id,omitempty"`

	ReferenceType ReferenceType `json:"reference_type"`
	ReferencePath string        `json:"reference_path"`

	TargetKind       string `json:"target_kind"`
	TargetAPIVersion string `json:"target_api_version,omitempty"`
	TargetName       string `json:"target_name"`
	TargetNamespace  string `json:"target_namespace,omitempty"`

	// ReferencedVersion is the version pinned by the reference, literal or
	// resolved from the target resource.
	ReferencedVersion string `json:"referenced_version,omitempty"`

	// IsExternal is set when the target could not be resolved within the
	// repository. Not an error: the target may live elsewhere entirely.
	IsExternal bool `json:"is_external"`

	FirstSeenAt time.Time `json:"first_seen_at"`
}

// ResourceMetrics is a per-scan snapshot of the semantic fields extracted
// from a resource body.
type ResourceMetrics struct {
	ResourceID string `json:"resource_id"`

	ChartName       string `json:"chart_name,omitempty"`
	ChartVersion    string `json:"chart_version,omitempty"`
	ChartRepository string `json:"chart_repository,omitempty"`
	SourceRevision  string `json:"source_revision,omitempty"`

	ImageVersions map[string]string `json:"image_versions,omitempty"`
	Replicas      *int              `json:"replicas,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}
