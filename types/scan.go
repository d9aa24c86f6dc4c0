package types

import "time"

// ScanResult summarizes one orchestrated scan of a repository.
type ScanResult struct {
	Created        int           `json:"created"`
	Modified       int           `json:"modified"`
	Deleted        int           `json:"deleted"`
	TotalResources int           `json:"total_resources"`
	SyncRunID      string        `json:"sync_run_id"`
	Duration       time.Duration `json:"duration"`

	// Changes carries the full change set for observers; it is not part of
	// the serialized summary.
	Changes ChangeSet `json:"-"`
}

// ScanStatus is the externally visible outcome of the latest scan attempt.
type ScanStatus string

const (
	ScanPending ScanStatus = "PENDING"
	ScanRunning ScanStatus = "RUNNING"
	ScanSuccess ScanStatus = "SUCCESS"
	ScanError   ScanStatus = "ERROR"
)

// RepositoryStatus tracks scan bookkeeping for one repository.
type RepositoryStatus struct {
	RepositoryID   string     `json:"repository_id"`
	Status         ScanStatus `json:"status"`
	Error          string     `json:"error,omitempty"`
	LastScanAt     *time.Time `json:"last_scan_at,omitempty"`
	TotalResources int        `json:"total_resources"`
}
