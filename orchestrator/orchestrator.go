// Package orchestrator runs complete repository scans: walk the working
// tree, diff against persisted state, derive metrics and references, and
// commit everything as one unit.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mchestr/kubestats/detector"
	"github.com/mchestr/kubestats/extractor"
	"github.com/mchestr/kubestats/scanner"
	"github.com/mchestr/kubestats/storage"
	"github.com/mchestr/kubestats/types"
)

// Store is the storage surface a scan needs.
type Store interface {
	storage.ResourceReader
	storage.Committer
	storage.ReferenceReader
	storage.RepositoryTracker
}

// Orchestrator coordinates one repository scan end to end.
type Orchestrator struct {
	store    Store
	scanner  *scanner.Scanner
	detector *detector.Detector
	logger   zerolog.Logger
}

// New creates an orchestrator over the given store.
func New(store Store, logger zerolog.Logger) *Orchestrator {
	return NewWithScanner(store, scanner.New(logger), logger)
}

// NewWithScanner creates an orchestrator using a custom-configured scanner,
// e.g. one with extra excluded directories.
func NewWithScanner(store Store, s *scanner.Scanner, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		scanner:  s,
		detector: detector.New(store, logger),
		logger:   logger,
	}
}

// ScanRepository scans workdir and persists the outcome. Either every
// effect of the scan lands or none do; scan bookkeeping is updated in both
// cases.
func (o *Orchestrator) ScanRepository(ctx context.Context, repositoryID, workdir string) (*types.ScanResult, error) {
	start := time.Now()
	syncRunID := uuid.NewString()

	logger := o.logger.With().
		Str("repository_id", repositoryID).
		Str("sync_run_id", syncRunID).
		Logger()

	if err := o.store.SetScanStatus(ctx, types.RepositoryStatus{
		RepositoryID: repositoryID,
		Status:       types.ScanRunning,
	}); err != nil {
		return nil, err
	}

	result, err := o.scan(ctx, repositoryID, workdir, syncRunID, start)
	if err != nil {
		logger.Error().Err(err).Msg("scan failed")
		now := time.Now().UTC()
		statusErr := o.store.SetScanStatus(ctx, types.RepositoryStatus{
			RepositoryID: repositoryID,
			Status:       types.ScanError,
			Error:        err.Error(),
			LastScanAt:   &now,
		})
		if statusErr != nil {
			logger.Error().Err(statusErr).Msg("failed to record scan error")
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := o.store.SetScanStatus(ctx, types.RepositoryStatus{
		RepositoryID:   repositoryID,
		Status:         types.ScanSuccess,
		LastScanAt:     &now,
		TotalResources: result.TotalResources,
	}); err != nil {
		return nil, err
	}

	logger.Info().
		Int("created", result.Created).
		Int("modified", result.Modified).
		Int("deleted", result.Deleted).
		Int("total", result.TotalResources).
		Dur("duration", result.Duration).
		Msg("scan complete")

	return result, nil
}

func (o *Orchestrator) scan(ctx context.Context, repositoryID, workdir, syncRunID string, start time.Time) (*types.ScanResult, error) {
	existing, err := o.store.GetActiveResources(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	scanned, err := o.scanner.Scan(workdir)
	if err != nil {
		return nil, err
	}

	changes, err := o.detector.Detect(ctx, repositoryID, existing, scanned)
	if err != nil {
		return nil, err
	}

	set, err := o.buildCommitSet(ctx, repositoryID, syncRunID, existing, scanned, changes)
	if err != nil {
		return nil, err
	}

	if !changes.Empty() || len(set.References) > 0 || len(set.Metrics) > 0 {
		if err := o.store.Commit(ctx, repositoryID, set); err != nil {
			return nil, err
		}
	}

	return &types.ScanResult{
		Created:        len(changes.Created) + len(changes.Resurrected),
		Modified:       len(changes.Modified),
		Deleted:        len(changes.Deleted),
		TotalResources: len(scanned),
		SyncRunID:      syncRunID,
		Duration:       time.Since(start),
		Changes:        changes,
	}, nil
}

// buildCommitSet turns a ChangeSet into the records one transaction will
// write: resource rows, lifecycle events, metrics snapshots and the
// repository's replacement reference set.
func (o *Orchestrator) buildCommitSet(ctx context.Context, repositoryID, syncRunID string, existing map[string]types.PersistedResource, scanned []types.ResourceData, changes types.ChangeSet) (storage.CommitSet, error) {
	now := time.Now().UTC()
	var set storage.CommitSet

	// Durable id per identity after this scan commits: unchanged and
	// modified resources keep theirs, resurrections reuse the original.
	idByIdentity := make(map[string]string, len(scanned))
	for key, resource := range existing {
		idByIdentity[key] = resource.ID
	}

	appendEvent := func(change types.ResourceChange, resourceID string) {
		set.Events = append(set.Events, storage.LifecycleEvent{
			ID:                 uuid.NewString(),
			RepositoryID:       repositoryID,
			ResourceID:         resourceID,
			EventType:          change.Type,
			ResourceName:       change.Name(),
			ResourceNamespace:  change.Namespace(),
			ResourceKind:       change.Kind(),
			ResourceAPIVersion: change.APIVersion(),
			FilePath:           change.FilePath(),
			FileHashBefore:     change.FileHashBefore,
			FileHashAfter:      change.FileHashAfter,
			ChangedPaths:       change.ChangedPaths,
			SyncRunID:          syncRunID,
			Timestamp:          now,
		})
	}

	for _, change := range changes.Created {
		record := newRecord(repositoryID, *change.Resource, uuid.NewString(), now, now)
		idByIdentity[record.IdentityKey()] = record.ID
		set.Resources = append(set.Resources, record)
		appendEvent(change, record.ID)
	}

	for _, change := range changes.Resurrected {
		record := newRecord(repositoryID, *change.Resource, change.Existing.ID, change.Existing.CreatedAt, now)
		idByIdentity[record.IdentityKey()] = record.ID
		set.Resources = append(set.Resources, record)
		appendEvent(change, record.ID)
	}

	for _, change := range changes.Modified {
		record := newRecord(repositoryID, *change.Resource, change.Existing.ID, change.Existing.CreatedAt, now)
		set.Resources = append(set.Resources, record)
		appendEvent(change, record.ID)
	}

	for _, change := range changes.Deleted {
		record := *change.Existing
		record.Status = types.StatusDeleted
		record.DeletedAt = &now
		record.UpdatedAt = now
		delete(idByIdentity, record.IdentityKey())
		set.Resources = append(set.Resources, record)
		appendEvent(change, record.ID)
	}

	set.Metrics = extractMetrics(changes, scanned, idByIdentity, now)

	refs, err := o.extractReferences(ctx, repositoryID, scanned, idByIdentity, now)
	if err != nil {
		return storage.CommitSet{}, err
	}
	set.References = refs

	return set, nil
}

func newRecord(repositoryID string, resource types.ResourceData, id string, createdAt, now time.Time) types.PersistedResource {
	return types.PersistedResource{
		ID:           id,
		RepositoryID: repositoryID,
		APIVersion:   resource.APIVersion,
		Kind:         resource.Kind,
		Name:         resource.Name,
		Namespace:    resource.Namespace,
		FilePath:     resource.FilePath,
		FileHash:     resource.FileHash,
		Version:      resource.Version,
		Body:         resource.Body,
		Status:       types.StatusActive,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
}

// extractMetrics snapshots the changed resources, then resolves chartRef
// versions across the scan.
func extractMetrics(changes types.ChangeSet, scanned []types.ResourceData, idByIdentity map[string]string, now time.Time) []types.ResourceMetrics {
	byIdentity := make(map[string]*types.ResourceMetrics)
	var order []string

	for _, change := range changes.All() {
		if change.Resource == nil {
			continue
		}
		metrics := extractor.ExtractMetrics(*change.Resource, now)
		if metrics == nil {
			continue
		}
		key := change.Resource.IdentityKey()
		metrics.ResourceID = idByIdentity[key]
		byIdentity[key] = metrics
		order = append(order, key)
	}

	extractor.ResolveMetricsVersions(scanned, byIdentity)

	snapshots := make([]types.ResourceMetrics, 0, len(order))
	for _, key := range order {
		snapshots = append(snapshots, *byIdentity[key])
	}
	return snapshots
}

// extractReferences derives the repository's full reference set from this
// scan, resolving targets against the post-commit active set and keeping
// first-seen timestamps stable across scans.
func (o *Orchestrator) extractReferences(ctx context.Context, repositoryID string, scanned []types.ResourceData, idByIdentity map[string]string, now time.Time) ([]types.ResourceReference, error) {
	previous, err := o.store.References(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	firstSeen := make(map[string]time.Time, len(previous))
	for _, ref := range previous {
		firstSeen[referenceKey(ref)] = ref.FirstSeenAt
	}

	index := extractor.NewScanIndex(scanned)
	targets := newTargetResolver(scanned, idByIdentity)

	var refs []types.ResourceReference
	for i := range scanned {
		resource := scanned[i]
		for _, ref := range extractor.ExtractReferences(resource) {
			ref.ID = uuid.NewString()
			ref.RepositoryID = repositoryID
			ref.SourceResourceID = idByIdentity[resource.IdentityKey()]
			ref.FirstSeenAt = now

			extractor.ResolveReferenceVersion(&ref, index)

			if targetID, ok := targets.resolve(ref); ok {
				ref.TargetResourceID = targetID
			} else {
				ref.IsExternal = true
			}

			if seen, ok := firstSeen[referenceKey(ref)]; ok {
				ref.FirstSeenAt = seen
			}
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// referenceKey identifies a reference independent of its row id, so the
// first-seen timestamp survives the per-scan replacement of the set.
func referenceKey(ref types.ResourceReference) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		ref.SourceResourceID, ref.ReferencePath, ref.TargetKind, ref.TargetNamespace, ref.TargetName)
}

// targetResolver maps reference targets to post-commit resource ids.
type targetResolver struct {
	byKindNsName map[string]string
	byKindName   map[string]string
}

func newTargetResolver(scanned []types.ResourceData, idByIdentity map[string]string) *targetResolver {
	resolver := &targetResolver{
		byKindNsName: make(map[string]string),
		byKindName:   make(map[string]string),
	}
	for i := range scanned {
		resource := scanned[i]
		id := idByIdentity[resource.IdentityKey()]
		if id == "" {
			continue
		}
		nsKey := resource.Kind + "|" + resource.Namespace + "|" + resource.Name
		if _, ok := resolver.byKindNsName[nsKey]; !ok {
			resolver.byKindNsName[nsKey] = id
		}
		nameKey := resource.Kind + "|" + resource.Name
		if _, ok := resolver.byKindName[nameKey]; !ok {
			resolver.byKindName[nameKey] = id
		}
	}
	return resolver
}

// resolve prefers an exact namespace match, then falls back to name only:
// manifests routinely omit the namespace a Kustomization will inject.
func (r *targetResolver) resolve(ref types.ResourceReference) (string, bool) {
	if id, ok := r.byKindNsName[ref.TargetKind+"|"+ref.TargetNamespace+"|"+ref.TargetName]; ok {
		return id, true
	}
	id, ok := r.byKindName[ref.TargetKind+"|"+ref.TargetName]
	return id, ok
}
