package parser

import "github.com/mchestr/kubestats/types"

// FluxCD API groups, version-agnostic.
const (
	HelmGroup      = "helm.toolkit.fluxcd.io"
	SourceGroup    = "source.toolkit.fluxcd.io"
	KustomizeGroup = "kustomize.toolkit.fluxcd.io"
)

// registerFluxClassifiers adds the FluxCD resource kinds.
func registerFluxClassifiers(r *Registry) {
	r.Register(Classifier{
		APIVersionPrefix: HelmGroup,
		Kind:             "HelmRelease",
		Extract:          extractHelmRelease,
	})
	r.Register(Classifier{
		APIVersionPrefix: SourceGroup,
		Kind:             "OCIRepository",
		Extract:          extractOCIRepository,
	})
	r.Register(Classifier{
		APIVersionPrefix: SourceGroup,
		Kind:             "GitRepository",
	})
	r.Register(Classifier{
		APIVersionPrefix: SourceGroup,
		Kind:             "HelmRepository",
	})
	r.Register(Classifier{
		APIVersionPrefix: KustomizeGroup,
		Kind:             "Kustomization",
	})
}

// extractHelmRelease resolves the chart version for the chart-spec pattern.
// A release using chartRef carries no literal version; that is filled in
// later by cross-resource version propagation.
func extractHelmRelease(doc map[string]any, resource *types.ResourceData) {
	resource.Version = stringAt(doc, "spec", "chart", "spec", "version")
}

// extractOCIRepository takes the artifact version from the pinned tag.
func extractOCIRepository(doc map[string]any, resource *types.ResourceData) {
	resource.Version = stringAt(doc, "spec", "ref", "tag")
}
