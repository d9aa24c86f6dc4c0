package scanner

import (
	"path"
	"strings"

	"github.com/mchestr/kubestats/parser"
	"github.com/mchestr/kubestats/types"
)

// PostProcess runs the cross-document passes over a fully parsed scan:
// namespace inheritance from enclosing Kustomizations, then chartRef version
// propagation from same-name OCIRepositories. It builds immutable lookup
// indexes first and returns a new slice, leaving the input untouched.
func PostProcess(resources []types.ResourceData) []types.ResourceData {
	if len(resources) == 0 {
		return resources
	}

	namespaces := buildNamespaceIndex(resources)
	versions := buildVersionIndex(resources)

	out := make([]types.ResourceData, len(resources))
	for i, resource := range resources {
		if resource.Namespace == "" {
			resource.Namespace = namespaces.lookup(resource.FilePath)
		}
		if resource.Version == "" && isChartRefRelease(resource) {
			resource.Version = versions[chartRefName(resource)]
		}
		out[i] = resource
	}
	return out
}

// namespaceIndex maps Kustomization directories to their targetNamespace.
type namespaceIndex map[string]string

// buildNamespaceIndex collects targetNamespace per Kustomization directory.
func buildNamespaceIndex(resources []types.ResourceData) namespaceIndex {
	index := namespaceIndex{}
	for _, resource := range resources {
		if resource.Kind != "Kustomization" ||
			!strings.HasPrefix(resource.APIVersion, parser.KustomizeGroup) {
			continue
		}
		target, _ := resource.Body["targetNamespace"].(string)
		if target == "" {
			continue
		}
		index[path.Dir(resource.FilePath)] = target
	}
	return index
}

// lookup finds the namespace of the nearest enclosing Kustomization
// directory. Deeper directories win ties.
func (idx namespaceIndex) lookup(filePath string) string {
	var bestDir, bestNS string
	for dir, ns := range idx {
		if !isUnder(filePath, dir) {
			continue
		}
		if bestNS == "" || len(dir) > len(bestDir) {
			bestDir, bestNS = dir, ns
		}
	}
	return bestNS
}

// isUnder reports whether filePath sits in dir or any directory below it.
func isUnder(filePath, dir string) bool {
	if dir == "." {
		return true
	}
	fileDir := path.Dir(filePath)
	return fileDir == dir || strings.HasPrefix(fileDir, dir+"/")
}

// buildVersionIndex maps OCIRepository names to their pinned tags.
func buildVersionIndex(resources []types.ResourceData) map[string]string {
	index := map[string]string{}
	for _, resource := range resources {
		if resource.Kind == "OCIRepository" &&
			strings.HasPrefix(resource.APIVersion, parser.SourceGroup) &&
			resource.Version != "" {
			index[resource.Name] = resource.Version
		}
	}
	return index
}

// isChartRefRelease reports whether a HelmRelease points at its chart via
// the chartRef pattern.
func isChartRefRelease(resource types.ResourceData) bool {
	if resource.Kind != "HelmRelease" ||
		!strings.HasPrefix(resource.APIVersion, parser.HelmGroup) {
		return false
	}
	_, ok := resource.Body["chartRef"]
	return ok
}

// chartRefName returns the name the chartRef points at.
func chartRefName(resource types.ResourceData) string {
	ref, _ := resource.Body["chartRef"].(map[string]any)
	name, _ := ref["name"].(string)
	return name
}
