package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/mchestr/kubestats/types"
)

// Bucket names in bbolt.
var (
	bucketResources    = []byte("resources")
	bucketEvents       = []byte("events")
	bucketReferences   = []byte("references")
	bucketMetrics      = []byte("metrics")
	bucketRepositories = []byte("repositories")
)

// maxScanErrorLen bounds the stored scan error message.
const maxScanErrorLen = 2000

// keySep separates key segments; it cannot appear in ids or identity keys.
const keySep = "\x00"

// resourceState is the in-memory index entry for one persisted resource.
type resourceState struct {
	RepositoryID string
	IdentityKey  string
	ResourceID   string
	APIVersion   string
	Kind         string
	Name         string
	Namespace    string
	Status       types.ResourceStatus
}

func stateLess(a, b *resourceState) bool {
	if a.RepositoryID != b.RepositoryID {
		return a.RepositoryID < b.RepositoryID
	}
	return a.IdentityKey < b.IdentityKey
}

// BoltStore implements Store on bbolt with an in-memory btree index over
// (repository, identity). A single bbolt update transaction gives Commit
// its all-or-nothing semantics.
type BoltStore struct {
	mu    sync.RWMutex
	index *btree.BTreeG[*resourceState]
	db    *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// Open creates or opens the store under dir.
func Open(dir string) (*BoltStore, error) {
	dbPath := filepath.Join(dir, "kubestats.db")

	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketResources, bucketEvents, bucketReferences, bucketMetrics, bucketRepositories} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &BoltStore{
		index: btree.NewG(32, stateLess),
		db:    db,
	}
	if err := store.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// rebuildIndex loads the resource index from disk.
func (s *BoltStore) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResources).ForEach(func(_, value []byte) error {
			var resource types.PersistedResource
			if err := json.Unmarshal(value, &resource); err != nil {
				return err
			}
			s.index.ReplaceOrInsert(stateOf(resource))
			return nil
		})
	})
}

func stateOf(resource types.PersistedResource) *resourceState {
	return &resourceState{
		RepositoryID: resource.RepositoryID,
		IdentityKey:  resource.IdentityKey(),
		ResourceID:   resource.ID,
		APIVersion:   resource.APIVersion,
		Kind:         resource.Kind,
		Name:         resource.Name,
		Namespace:    resource.Namespace,
		Status:       resource.Status,
	}
}

func resourceKey(repositoryID, identityKey string) []byte {
	return []byte(repositoryID + keySep + identityKey)
}

func eventKey(repositoryID, syncRunID string, seq uint64) []byte {
	key := make([]byte, 0, len(repositoryID)+len(syncRunID)+10)
	key = append(key, repositoryID...)
	key = append(key, keySep...)
	key = append(key, syncRunID...)
	key = append(key, keySep...)
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

// metricsKey orders snapshots by recorded time then sequence; both fields
// are fixed-width big-endian so byte order matches numeric order.
func metricsKey(repositoryID, resourceID string, recordedAt time.Time, seq uint64) []byte {
	key := make([]byte, 0, len(repositoryID)+len(resourceID)+18)
	key = append(key, repositoryID...)
	key = append(key, keySep...)
	key = append(key, resourceID...)
	key = append(key, keySep...)
	key = binary.BigEndian.AppendUint64(key, uint64(recordedAt.UnixNano()))
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

// GetActiveResources returns the repository's active set keyed by identity.
func (s *BoltStore) GetActiveResources(_ context.Context, repositoryID string) (map[string]types.PersistedResource, error) {
	active := make(map[string]types.PersistedResource)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachPrefix(tx.Bucket(bucketResources), []byte(repositoryID+keySep), func(value []byte) error {
			var resource types.PersistedResource
			if err := json.Unmarshal(value, &resource); err != nil {
				return err
			}
			if resource.Status == types.StatusActive {
				active[resource.IdentityKey()] = resource
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load active resources: %w", err)
	}
	return active, nil
}

// GetDeletedResource finds a soft-deleted resource by identity.
func (s *BoltStore) GetDeletedResource(_ context.Context, repositoryID, identityKey string) (*types.PersistedResource, error) {
	var found *types.PersistedResource

	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketResources).Get(resourceKey(repositoryID, identityKey))
		if value == nil {
			return nil
		}
		var resource types.PersistedResource
		if err := json.Unmarshal(value, &resource); err != nil {
			return err
		}
		if resource.Status == types.StatusDeleted {
			found = &resource
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load deleted resource: %w", err)
	}
	return found, nil
}

// ResolveResourceID finds the durable id of an active resource matching the
// given type and name. The lowest identity key wins when several files
// declare the same logical resource.
func (s *BoltStore) ResolveResourceID(_ context.Context, repositoryID, apiVersion, kind, name, namespace string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	pivot := &resourceState{RepositoryID: repositoryID}
	s.index.AscendGreaterOrEqual(pivot, func(state *resourceState) bool {
		if state.RepositoryID != repositoryID {
			return false
		}
		if state.Status == types.StatusActive &&
			state.Kind == kind &&
			state.Name == name &&
			state.Namespace == namespace &&
			apiGroupsMatch(state.APIVersion, apiVersion) {
			id = state.ResourceID
			return false
		}
		return true
	})

	return id, id != "", nil
}

// apiGroupsMatch compares apiVersions by group so a reference declared
// against one CRD version resolves against another.
func apiGroupsMatch(stored, target string) bool {
	if target == "" || stored == target {
		return true
	}
	return apiGroup(stored) == apiGroup(target)
}

func apiGroup(apiVersion string) string {
	if i := strings.Index(apiVersion, "/"); i >= 0 {
		return apiVersion[:i]
	}
	// Core group: "v1" has no group segment.
	return ""
}

// Commit persists one scan's effects in a single transaction and then
// refreshes the in-memory index.
func (s *BoltStore) Commit(ctx context.Context, repositoryID string, set CommitSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		resources := tx.Bucket(bucketResources)
		for _, resource := range set.Resources {
			value, err := json.Marshal(resource)
			if err != nil {
				return err
			}
			if err := resources.Put(resourceKey(repositoryID, resource.IdentityKey()), value); err != nil {
				return err
			}
		}

		events := tx.Bucket(bucketEvents)
		for i, event := range set.Events {
			value, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if err := events.Put(eventKey(repositoryID, event.SyncRunID, uint64(i)), value); err != nil {
				return err
			}
		}

		metrics := tx.Bucket(bucketMetrics)
		for i, snapshot := range set.Metrics {
			value, err := json.Marshal(snapshot)
			if err != nil {
				return err
			}
			key := metricsKey(repositoryID, snapshot.ResourceID, snapshot.RecordedAt, uint64(i))
			if err := metrics.Put(key, value); err != nil {
				return err
			}
		}

		if err := replaceReferences(tx.Bucket(bucketReferences), repositoryID, set.References); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit failed for repository %s: %w", repositoryID, err)
	}

	s.mu.Lock()
	for _, resource := range set.Resources {
		s.index.ReplaceOrInsert(stateOf(resource))
	}
	s.mu.Unlock()

	return nil
}

// replaceReferences swaps the repository's reference set for the new one.
// Each scan re-derives references in full, so stale pointers never linger.
func replaceReferences(bucket *bbolt.Bucket, repositoryID string, refs []types.ResourceReference) error {
	prefix := []byte(repositoryID + keySep)
	cursor := bucket.Cursor()
	for key, _ := cursor.Seek(prefix); key != nil && bytes.HasPrefix(key, prefix); key, _ = cursor.Next() {
		if err := cursor.Delete(); err != nil {
			return err
		}
	}

	for _, ref := range refs {
		value, err := json.Marshal(ref)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(repositoryID+keySep+ref.ID), value); err != nil {
			return err
		}
	}
	return nil
}

// EventsBySyncRun returns every lifecycle event of one scan, in the order
// they were recorded.
func (s *BoltStore) EventsBySyncRun(_ context.Context, repositoryID, syncRunID string) ([]LifecycleEvent, error) {
	var events []LifecycleEvent
	prefix := []byte(repositoryID + keySep + syncRunID + keySep)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachPrefix(tx.Bucket(bucketEvents), prefix, func(value []byte) error {
			var event LifecycleEvent
			if err := json.Unmarshal(value, &event); err != nil {
				return err
			}
			events = append(events, event)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

// EventsSince returns the repository's lifecycle events at or after the
// given time.
func (s *BoltStore) EventsSince(_ context.Context, repositoryID string, since time.Time) ([]LifecycleEvent, error) {
	var events []LifecycleEvent

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachPrefix(tx.Bucket(bucketEvents), []byte(repositoryID+keySep), func(value []byte) error {
			var event LifecycleEvent
			if err := json.Unmarshal(value, &event); err != nil {
				return err
			}
			if !event.Timestamp.Before(since) {
				events = append(events, event)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

// References returns the repository's current reference set.
func (s *BoltStore) References(_ context.Context, repositoryID string) ([]types.ResourceReference, error) {
	var refs []types.ResourceReference

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachPrefix(tx.Bucket(bucketReferences), []byte(repositoryID+keySep), func(value []byte) error {
			var ref types.ResourceReference
			if err := json.Unmarshal(value, &ref); err != nil {
				return err
			}
			refs = append(refs, ref)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}
	return refs, nil
}

// MetricsForResource returns a resource's metrics snapshots oldest first.
func (s *BoltStore) MetricsForResource(_ context.Context, repositoryID, resourceID string) ([]types.ResourceMetrics, error) {
	var snapshots []types.ResourceMetrics
	prefix := []byte(repositoryID + keySep + resourceID + keySep)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachPrefix(tx.Bucket(bucketMetrics), prefix, func(value []byte) error {
			var snapshot types.ResourceMetrics
			if err := json.Unmarshal(value, &snapshot); err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	return snapshots, nil
}

// SetScanStatus records the outcome of the latest scan attempt. Error text
// is truncated so a pathological failure cannot bloat the record.
func (s *BoltStore) SetScanStatus(_ context.Context, status types.RepositoryStatus) error {
	if len(status.Error) > maxScanErrorLen {
		status.Error = status.Error[:maxScanErrorLen]
	}

	value, err := json.Marshal(status)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRepositories).Put([]byte(status.RepositoryID), value)
	})
	if err != nil {
		return fmt.Errorf("failed to store scan status: %w", err)
	}
	return nil
}

// GetScanStatus returns the repository's scan bookkeeping, or nil if it has
// never been scanned.
func (s *BoltStore) GetScanStatus(_ context.Context, repositoryID string) (*types.RepositoryStatus, error) {
	var status *types.RepositoryStatus

	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketRepositories).Get([]byte(repositoryID))
		if value == nil {
			return nil
		}
		var decoded types.RepositoryStatus
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		status = &decoded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load scan status: %w", err)
	}
	return status, nil
}

// forEachPrefix visits every value whose key starts with prefix.
func forEachPrefix(bucket *bbolt.Bucket, prefix []byte, fn func(value []byte) error) error {
	cursor := bucket.Cursor()
	for key, value := cursor.Seek(prefix); key != nil && bytes.HasPrefix(key, prefix); key, value = cursor.Next() {
		if err := fn(value); err != nil {
			return err
		}
	}
	return nil
}
