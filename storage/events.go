package storage

import (
	"time"

	"github.com/mchestr/kubestats/types"
)

// LifecycleEvent is the durable record of one resource change, denormalized
// so history survives resource deletion. Events from one scan share a
// syncRunID.
type LifecycleEvent struct {
	ID           string `json:"id"`
	RepositoryID string `json:"repository_id"`
	ResourceID   string `json:"resource_id"`

	EventType types.ChangeType `json:"event_type"`

	ResourceName       string `json:"resource_name"`
	ResourceNamespace  string `json:"resource_namespace,omitempty"`
	ResourceKind       string `json:"resource_kind"`
	ResourceAPIVersion string `json:"resource_api_version"`
	FilePath           string `json:"file_path"`

	FileHashBefore string   `json:"file_hash_before,omitempty"`
	FileHashAfter  string   `json:"file_hash_after,omitempty"`
	ChangedPaths   []string `json:"changed_paths,omitempty"`

	SyncRunID string    `json:"sync_run_id"`
	Timestamp time.Time `json:"timestamp"`
}
