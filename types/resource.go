package types

import (
	"fmt"
	"strings"
	"time"
)

// ResourceData is a resource parsed out of one YAML document during a scan.
// It is scan-scoped and discarded once its effects are persisted.
type ResourceData struct {
	APIVersion string         `json:"api_version"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	Namespace  string         `json:"namespace,omitempty"`
	FilePath   string         `json:"file_path"`
	FileHash   string         `json:"file_hash"`
	Version    string         `json:"version,omitempty"`
	Body       map[string]any `json:"body,omitempty"`
}

// IdentityKey returns the durable key for this resource within a repository:
// apiVersion:kind:[namespace:]name:filePath
func (r ResourceData) IdentityKey() string {
	return FormatIdentityKey(r.APIVersion, r.Kind, r.Namespace, r.Name, r.FilePath)
}

// FormatIdentityKey builds an identity key from its parts.
func FormatIdentityKey(apiVersion, kind, namespace, name, filePath string) string {
	if namespace == "" {
		return fmt.Sprintf("%s:%s:%s:%s", apiVersion, kind, name, filePath)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", apiVersion, kind, namespace, name, filePath)
}

// ParseIdentityKey splits an identity key back into its parts.
// Names and namespaces never contain colons (RFC 1123 labels), so a five-way
// split is unambiguous unless a cluster-scoped resource lives under a file
// path that itself contains a colon.
func ParseIdentityKey(key string) (apiVersion, kind, namespace, name, filePath string, err error) {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 4:
		return parts[0], parts[1], "", parts[2], parts[3], nil
	case len(parts) >= 5:
		return parts[0], parts[1], parts[2], parts[3], strings.Join(parts[4:], ":"), nil
	default:
		return "", "", "", "", "", fmt.Errorf("malformed identity key %q", key)
	}
}

// ResourceStatus is the lifecycle state of a persisted resource.
type ResourceStatus string

const (
	StatusActive  ResourceStatus = "ACTIVE"
	StatusDeleted ResourceStatus = "DELETED"
)

// PersistedResource is the durable record of a resource. Owned by the
// storage boundary; it outlives any single scan. Status transitions are
// driven only by detected changes, never mutated directly.
type PersistedResource struct {
	ID           string         `json:"id"`
	RepositoryID string         `json:"repository_id"`
	APIVersion   string         `json:"api_version"`
	Kind         string         `json:"kind"`
	Name         string         `json:"name"`
	Namespace    string         `json:"namespace,omitempty"`
	FilePath     string         `json:"file_path"`
	FileHash     string         `json:"file_hash"`
	Version      string         `json:"version,omitempty"`
	Body         map[string]any `json:"body,omitempty"`

	Status    ResourceStatus `json:"status"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IdentityKey returns the durable key for this resource within its repository.
func (r PersistedResource) IdentityKey() string {
	return FormatIdentityKey(r.APIVersion, r.Kind, r.Namespace, r.Name, r.FilePath)
}
