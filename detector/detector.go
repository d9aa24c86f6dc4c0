// Package detector diffs a fresh scan against the persisted active set.
package detector

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mchestr/kubestats/types"
)

// DeletedLookup finds a soft-deleted resource by identity so a reappearing
// resource can be resurrected under its original durable id.
type DeletedLookup interface {
	GetDeletedResource(ctx context.Context, repositoryID, identityKey string) (*types.PersistedResource, error)
}

// Detector classifies the differences between persisted state and scan
// output.
type Detector struct {
	deleted DeletedLookup
	logger  zerolog.Logger
}

// New creates a detector backed by the given deleted-resource lookup.
func New(deleted DeletedLookup, logger zerolog.Logger) *Detector {
	return &Detector{deleted: deleted, logger: logger}
}

// Detect compares the existing active set (keyed by identity) with the
// scanned resources and returns the scan's ChangeSet. Identity matching is
// exact-tuple; namespaced and cluster-scoped variants never collide.
func (d *Detector) Detect(ctx context.Context, repositoryID string, existing map[string]types.PersistedResource, scanned []types.ResourceData) (types.ChangeSet, error) {
	var changes types.ChangeSet
	seen := make(map[string]bool, len(scanned))

	for i := range scanned {
		resource := scanned[i]
		key := resource.IdentityKey()
		seen[key] = true

		current, ok := existing[key]
		if !ok {
			change, err := d.classifyNew(ctx, repositoryID, resource)
			if err != nil {
				return types.ChangeSet{}, err
			}
			if change.Type == types.ChangeResurrected {
				changes.Resurrected = append(changes.Resurrected, change)
			} else {
				changes.Created = append(changes.Created, change)
			}
			continue
		}

		if current.FileHash == resource.FileHash {
			continue
		}

		existingCopy := current
		changes.Modified = append(changes.Modified, types.ResourceChange{
			Type:           types.ChangeModified,
			Resource:       &resource,
			Existing:       &existingCopy,
			FileHashBefore: current.FileHash,
			FileHashAfter:  resource.FileHash,
			ChangedPaths:   ChangedPaths(current.Body, resource.Body),
		})
	}

	// Deterministic order for deletions.
	keys := make([]string, 0, len(existing))
	for key := range existing {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		resource := existing[key]
		changes.Deleted = append(changes.Deleted, types.ResourceChange{
			Type:           types.ChangeDeleted,
			Existing:       &resource,
			FileHashBefore: resource.FileHash,
		})
	}

	d.logger.Debug().
		Str("repository_id", repositoryID).
		Int("created", len(changes.Created)).
		Int("modified", len(changes.Modified)).
		Int("deleted", len(changes.Deleted)).
		Int("resurrected", len(changes.Resurrected)).
		Msg("change detection complete")

	return changes, nil
}

// classifyNew decides whether an unseen identity is brand new or a
// previously deleted resource coming back.
func (d *Detector) classifyNew(ctx context.Context, repositoryID string, resource types.ResourceData) (types.ResourceChange, error) {
	deleted, err := d.deleted.GetDeletedResource(ctx, repositoryID, resource.IdentityKey())
	if err != nil {
		return types.ResourceChange{}, fmt.Errorf("deleted-resource lookup for %s: %w", resource.IdentityKey(), err)
	}

	if deleted != nil {
		return types.ResourceChange{
			Type:           types.ChangeResurrected,
			Resource:       &resource,
			Existing:       deleted,
			FileHashBefore: deleted.FileHash,
			FileHashAfter:  resource.FileHash,
		}, nil
	}

	return types.ResourceChange{
		Type:          types.ChangeCreated,
		Resource:      &resource,
		FileHashAfter: resource.FileHash,
	}, nil
}
