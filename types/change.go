package types

// ChangeType categorizes a detected resource change.
type ChangeType string

const (
	ChangeCreated     ChangeType = "CREATED"
	ChangeModified    ChangeType = "MODIFIED"
	ChangeDeleted     ChangeType = "DELETED"
	ChangeResurrected ChangeType = "RESURRECTED"
)

// ResourceChange is one detected difference between the persisted active set
// and a fresh scan.
type ResourceChange struct {
	Type     ChangeType         `json:"type"`
	Resource *ResourceData      `json:"resource,omitempty"`
	Existing *PersistedResource `json:"existing,omitempty"`

	FileHashBefore string `json:"file_hash_before,omitempty"`
	FileHashAfter  string `json:"file_hash_after,omitempty"`

	// ChangedPaths lists structurally changed body fields for MODIFIED
	// changes, dot-notation relative to the body root.
	ChangedPaths []string `json:"changed_paths,omitempty"`
}

// Name returns the resource name regardless of which side of the change
// carries it.
func (c ResourceChange) Name() string {
	if c.Resource != nil {
		return c.Resource.Name
	}
	if c.Existing != nil {
		return c.Existing.Name
	}
	return ""
}

// Namespace returns the resource namespace, preferring the scanned side.
func (c ResourceChange) Namespace() string {
	if c.Resource != nil {
		return c.Resource.Namespace
	}
	if c.Existing != nil {
		return c.Existing.Namespace
	}
	return ""
}

// Kind returns the resource kind, preferring the scanned side.
func (c ResourceChange) Kind() string {
	if c.Resource != nil {
		return c.Resource.Kind
	}
	if c.Existing != nil {
		return c.Existing.Kind
	}
	return ""
}

// APIVersion returns the resource apiVersion, preferring the scanned side.
func (c ResourceChange) APIVersion() string {
	if c.Resource != nil {
		return c.Resource.APIVersion
	}
	if c.Existing != nil {
		return c.Existing.APIVersion
	}
	return ""
}

// FilePath returns the originating file path, preferring the scanned side.
func (c ResourceChange) FilePath() string {
	if c.Resource != nil {
		return c.Resource.FilePath
	}
	if c.Existing != nil {
		return c.Existing.FilePath
	}
	return ""
}

// ChangeSet groups every change detected by one scan.
type ChangeSet struct {
	Created     []ResourceChange `json:"created"`
	Modified    []ResourceChange `json:"modified"`
	Deleted     []ResourceChange `json:"deleted"`
	Resurrected []ResourceChange `json:"resurrected"`
}

// Empty reports whether the scan detected no changes at all.
func (cs ChangeSet) Empty() bool {
	return len(cs.Created) == 0 && len(cs.Modified) == 0 &&
		len(cs.Deleted) == 0 && len(cs.Resurrected) == 0
}

// All returns every change in creation, resurrection, modification,
// deletion order.
func (cs ChangeSet) All() []ResourceChange {
	all := make([]ResourceChange, 0,
		len(cs.Created)+len(cs.Resurrected)+len(cs.Modified)+len(cs.Deleted))
	all = append(all, cs.Created...)
	all = append(all, cs.Resurrected...)
	all = append(all, cs.Modified...)
	all = append(all, cs.Deleted...)
	return all
}
