package parser

import (
	"strings"

	"github.com/mchestr/kubestats/types"
)

// ExtractFunc pulls kind-specific fields out of a decoded document into the
// resource record.
type ExtractFunc func(doc map[string]any, resource *types.ResourceData)

// Classifier recognizes one (apiVersion-prefix, kind) pair and knows how to
// extract that kind's extra fields.
type Classifier struct {
	APIVersionPrefix string
	Kind             string
	Extract          ExtractFunc
}

// Matches reports whether this classifier handles the given type. API
// versions match by prefix so CRD version bumps (v2beta1 -> v2) keep
// matching; kinds match exactly.
func (c Classifier) Matches(apiVersion, kind string) bool {
	return kind == c.Kind && strings.HasPrefix(apiVersion, c.APIVersionPrefix)
}

// Registry is an ordered set of classifiers tested in registration order;
// the first match wins.
type Registry struct {
	classifiers []Classifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a classifier to the registry.
func (r *Registry) Register(c Classifier) {
	r.classifiers = append(r.classifiers, c)
}

// Match finds the first classifier handling the given resource type.
func (r *Registry) Match(apiVersion, kind string) (Classifier, bool) {
	for _, c := range r.classifiers {
		if c.Matches(apiVersion, kind) {
			return c, true
		}
	}
	return Classifier{}, false
}

// Classifiers returns the registered classifiers in order.
func (r *Registry) Classifiers() []Classifier {
	return r.classifiers
}

// DefaultRegistry registers the FluxCD classifiers followed by the generic
// Kubernetes kinds the system tracks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerFluxClassifiers(r)
	registerKubernetesClassifiers(r)
	return r
}
