package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func testScanner() *Scanner {
	return New(zerolog.Nop())
}

func TestScanFindsResourcesRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "apps/web/deployment.yaml", `apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  namespace: default
spec:
  replicas: 2
`)
	writeFile(t, root, "base/service.yml", `apiVersion: v1
kind: Service
metadata:
  name: web
  namespace: default
spec:
  type: ClusterIP
`)
	writeFile(t, root, "README.md", "not yaml")

	resources, err := testScanner().Scan(root)
	require.NoError(t, err)
	require.Len(t, resources, 2)

	// Lexicographic file order.
	assert.Equal(t, "apps/web/deployment.yaml", resources[0].FilePath)
	assert.Equal(t, "base/service.yml", resources[1].FilePath)
}

func TestScanSkipsHiddenAndVendorPaths(t *testing.T) {
	root := t.TempDir()
	manifest := `apiVersion: v1
kind: ConfigMap
metadata:
  name: cm
`
	writeFile(t, root, ".git/config.yaml", manifest)
	writeFile(t, root, ".github/workflows/ci.yaml", manifest)
	writeFile(t, root, "vendor/dep/cm.yaml", manifest)
	writeFile(t, root, "node_modules/pkg/cm.yaml", manifest)
	writeFile(t, root, "apps/.hidden.yaml", manifest)
	writeFile(t, root, "apps/cm.yaml", manifest)

	resources, err := testScanner().Scan(root)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "apps/cm.yaml", resources[0].FilePath)
}

func TestScanSurvivesBrokenFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.yaml", "kind: [unclosed\n  bad")
	writeFile(t, root, "good.yaml", `apiVersion: v1
kind: ConfigMap
metadata:
  name: survivor
`)

	resources, err := testScanner().Scan(root)
	require.NoError(t, err, "one bad file must not fail the scan")
	require.Len(t, resources, 1)
	assert.Equal(t, "survivor", resources[0].Name)
}

func TestScanInvalidRoot(t *testing.T) {
	_, err := testScanner().Scan(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, ErrInvalidRoot))

	file := filepath.Join(t.TempDir(), "file.yaml")
	require.NoError(t, os.WriteFile(file, []byte("x: 1"), 0o644))
	_, err = testScanner().Scan(file)
	assert.True(t, errors.Is(err, ErrInvalidRoot))
}

func TestScanPropagatesOCIVersionToChartRefRelease(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "oci.yaml", `apiVersion: source.toolkit.fluxcd.io/v1
kind: OCIRepository
metadata:
  name: grafana
spec:
  url: oci://ghcr.io/grafana/helm-charts/grafana
  ref:
    tag: 9.2.1
`)
	writeFile(t, root, "hr.yaml", `apiVersion: helm.toolkit.fluxcd.io/v2
kind: HelmRelease
metadata:
  name: grafana
spec:
  chartRef:
    kind: OCIRepository
    name: grafana
`)

	resources, err := testScanner().Scan(root)
	require.NoError(t, err)
	require.Len(t, resources, 2)

	byKind := map[string]string{}
	for _, r := range resources {
		byKind[r.Kind] = r.Version
	}
	assert.Equal(t, "9.2.1", byKind["OCIRepository"])
	assert.Equal(t, "9.2.1", byKind["HelmRelease"],
		"chartRef release inherits the OCIRepository tag")
}

func TestScanSkipsConfiguredExcludes(t *testing.T) {
	root := t.TempDir()
	manifest := `apiVersion: v1
kind: ConfigMap
metadata:
  name: cm
  namespace: default
`
	writeFile(t, root, "generated/cm.yaml", manifest)
	writeFile(t, root, "vendor/cm.yaml", manifest)
	writeFile(t, root, "apps/cm.yaml", manifest)

	s := NewWithExcludes(zerolog.Nop(), []string{"generated"})

	resources, err := s.Scan(root)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "apps/cm.yaml", resources[0].FilePath)
}
