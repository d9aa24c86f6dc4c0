// Package storage persists resources, lifecycle events and references.
package storage

import (
	"context"
	"time"

	"github.com/mchestr/kubestats/types"
)

// ResourceReader queries persisted resource state.
type ResourceReader interface {
	// GetActiveResources returns the repository's active set keyed by
	// identity.
	GetActiveResources(ctx context.Context, repositoryID string) (map[string]types.PersistedResource, error)

	// GetDeletedResource finds a soft-deleted resource by identity, or nil.
	GetDeletedResource(ctx context.Context, repositoryID, identityKey string) (*types.PersistedResource, error)

	// ResolveResourceID finds the durable id of an active resource by its
	// type and name. API versions match on group so references that omit
	// the exact CRD version still resolve.
	ResolveResourceID(ctx context.Context, repositoryID, apiVersion, kind, name, namespace string) (string, bool, error)
}

// Committer applies one scan's effects atomically.
type Committer interface {
	// Commit persists every mutation, event, metrics snapshot and reference
	// from one scan as a single all-or-nothing unit.
	Commit(ctx context.Context, repositoryID string, set CommitSet) error
}

// EventReader queries lifecycle events.
type EventReader interface {
	EventsBySyncRun(ctx context.Context, repositoryID, syncRunID string) ([]LifecycleEvent, error)
	EventsSince(ctx context.Context, repositoryID string, since time.Time) ([]LifecycleEvent, error)
}

// ReferenceReader queries the resource references recorded by the latest
// scan.
type ReferenceReader interface {
	References(ctx context.Context, repositoryID string) ([]types.ResourceReference, error)
}

// MetricsReader queries per-scan metrics snapshots.
type MetricsReader interface {
	MetricsForResource(ctx context.Context, repositoryID, resourceID string) ([]types.ResourceMetrics, error)
}

// RepositoryTracker records scan bookkeeping per repository.
type RepositoryTracker interface {
	SetScanStatus(ctx context.Context, status types.RepositoryStatus) error
	GetScanStatus(ctx context.Context, repositoryID string) (*types.RepositoryStatus, error)
}

// Lifecycle manages storage lifecycle.
type Lifecycle interface {
	Close() error
}

// Store combines every storage capability.
type Store interface {
	ResourceReader
	Committer
	EventReader
	ReferenceReader
	MetricsReader
	RepositoryTracker
	Lifecycle
}

// CommitSet carries one scan's complete set of effects.
type CommitSet struct {
	// Resources holds the full post-scan records to write: created,
	// modified and resurrected resources as ACTIVE, removed ones as
	// DELETED. Untouched resources are absent.
	Resources []types.PersistedResource

	// Events holds exactly one lifecycle event per change.
	Events []LifecycleEvent

	// Metrics holds the snapshots extracted for created/modified resources.
	Metrics []types.ResourceMetrics

	// References replaces the repository's reference set.
	References []types.ResourceReference
}
