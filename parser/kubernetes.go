package parser

// registerKubernetesClassifiers adds the plain Kubernetes kinds the system
// tracks. Each names one API group/version exactly; extraction is
// identity-only with the spec subtree as body.
func registerKubernetesClassifiers(r *Registry) {
	kinds := []struct {
		apiVersion string
		kind       string
	}{
		{"apps/v1", "Deployment"},
		{"apps/v1", "StatefulSet"},
		{"apps/v1", "DaemonSet"},
		{"apps/v1", "ReplicaSet"},
		{"v1", "Service"},
		{"v1", "ConfigMap"},
		{"v1", "Secret"},
		{"v1", "ServiceAccount"},
		{"networking.k8s.io/v1", "Ingress"},
		{"networking.k8s.io/v1", "NetworkPolicy"},
		{"gateway.networking.k8s.io/v1", "HTTPRoute"},
		{"autoscaling/v2", "HorizontalPodAutoscaler"},
		{"policy/v1", "PodDisruptionBudget"},
		{"rbac.authorization.k8s.io/v1", "Role"},
		{"rbac.authorization.k8s.io/v1", "RoleBinding"},
		{"rbac.authorization.k8s.io/v1", "ClusterRole"},
		{"rbac.authorization.k8s.io/v1", "ClusterRoleBinding"},
	}

	for _, k := range kinds {
		r.Register(Classifier{APIVersionPrefix: k.apiVersion, Kind: k.kind})
	}
}
