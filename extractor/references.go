package extractor

import (
	"strings"

	"github.com/mchestr/kubestats/parser"
	"github.com/mchestr/kubestats/types"
)

// Default API versions used when a reference names a kind without a version.
var defaultAPIVersions = map[string]string{
	"OCIRepository":  parser.SourceGroup + "/v1",
	"HelmRepository": parser.SourceGroup + "/v1",
	"GitRepository":  parser.SourceGroup + "/v1",
}

// ExtractReferences returns the structural pointers a resource declares.
// Source/target resource ids and the external flag are resolved by the
// caller against persisted state.
func ExtractReferences(resource types.ResourceData) []types.ResourceReference {
	switch {
	case resource.Kind == "HelmRelease" && strings.HasPrefix(resource.APIVersion, parser.HelmGroup):
		return helmReleaseReferences(resource)
	case resource.Kind == "Kustomization" && strings.HasPrefix(resource.APIVersion, parser.KustomizeGroup):
		return kustomizationReferences(resource)
	default:
		return nil
	}
}

// helmReleaseReferences extracts either the chartRef pointer or the
// chart.spec.sourceRef pointer; the two patterns are mutually exclusive.
func helmReleaseReferences(resource types.ResourceData) []types.ResourceReference {
	if chartRef, ok := resource.Body["chartRef"].(map[string]any); ok {
		kind, _ := chartRef["kind"].(string)
		if kind == "" {
			kind = "OCIRepository"
		}
		return []types.ResourceReference{
			pointerTo(resource, types.ReferenceChartRef, "spec.chartRef", kind, chartRef, ""),
		}
	}

	chartSpec := mapAt(resource.Body, "chart", "spec")
	sourceRef, ok := chartSpec["sourceRef"].(map[string]any)
	if !ok {
		return nil
	}
	kind, _ := sourceRef["kind"].(string)
	if kind == "" {
		kind = "HelmRepository"
	}
	version, _ := chartSpec["version"].(string)
	return []types.ResourceReference{
		pointerTo(resource, types.ReferenceSourceRef, "spec.chart.spec.sourceRef", kind, sourceRef, version),
	}
}

func kustomizationReferences(resource types.ResourceData) []types.ResourceReference {
	sourceRef, ok := resource.Body["sourceRef"].(map[string]any)
	if !ok {
		return nil
	}
	kind, _ := sourceRef["kind"].(string)
	if kind == "" {
		kind = "GitRepository"
	}
	return []types.ResourceReference{
		pointerTo(resource, types.ReferenceSourceRef, "spec.sourceRef", kind, sourceRef, ""),
	}
}

// pointerTo builds a reference record from a decoded ref block. The target
// namespace defaults to the source's namespace.
func pointerTo(resource types.ResourceData, refType types.ReferenceType, path, kind string, ref map[string]any, version string) types.ResourceReference {
	name, _ := ref["name"].(string)
	namespace, _ := ref["namespace"].(string)
	if namespace == "" {
		namespace = resource.Namespace
	}

	return types.ResourceReference{
		ReferenceType:     refType,
		ReferencePath:     path,
		TargetKind:        kind,
		TargetAPIVersion:  defaultAPIVersions[kind],
		TargetName:        name,
		TargetNamespace:   namespace,
		ReferencedVersion: version,
	}
}

// ResolveReferenceVersion fills a chartRef reference's version from the
// referenced OCIRepository when it is present in the same scan.
func ResolveReferenceVersion(ref *types.ResourceReference, index *ScanIndex) {
	if ref.ReferenceType != types.ReferenceChartRef ||
		ref.ReferencedVersion != "" ||
		ref.TargetKind != "OCIRepository" {
		return
	}

	target, ok := index.Lookup(ref.TargetKind, ref.TargetNamespace, ref.TargetName)
	if !ok {
		return
	}
	ref.ReferencedVersion = stringAt(target.Body, "ref", "tag")
}

// ScanIndex looks up scanned resources by kind, namespace and name. A
// namespaced lookup falls back to a namespace-less entry, since the target
// may not have had a namespace inherited.
type ScanIndex struct {
	byKindNsName map[string]types.ResourceData
	byKindName   map[string]types.ResourceData
}

// NewScanIndex indexes a scanned resource set.
func NewScanIndex(resources []types.ResourceData) *ScanIndex {
	index := &ScanIndex{
		byKindNsName: make(map[string]types.ResourceData, len(resources)),
		byKindName:   make(map[string]types.ResourceData, len(resources)),
	}
	for _, resource := range resources {
		index.byKindNsName[resource.Kind+"/"+resource.Namespace+"/"+resource.Name] = resource
		index.byKindName[resource.Kind+"/"+resource.Name] = resource
	}
	return index
}

// Lookup finds a scanned resource by kind and name, preferring an exact
// namespace match.
func (ix *ScanIndex) Lookup(kind, namespace, name string) (types.ResourceData, bool) {
	if r, ok := ix.byKindNsName[kind+"/"+namespace+"/"+name]; ok {
		return r, true
	}
	r, ok := ix.byKindName[kind+"/"+name]
	return r, ok
}
