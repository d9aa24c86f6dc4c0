// Package analyzer classifies version transitions observed across scans.
package analyzer

import (
	"github.com/Masterminds/semver/v3"

	"github.com/mchestr/kubestats/types"
)

// Direction says which way a version moved.
type Direction string

const (
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
	DirectionNone      Direction = "none"
	DirectionUnknown   Direction = "unknown"
)

// Magnitude is the semver component that changed.
type Magnitude string

const (
	MagnitudeMajor Magnitude = "major"
	MagnitudeMinor Magnitude = "minor"
	MagnitudePatch Magnitude = "patch"
	// MagnitudePrerelease covers transitions where only prerelease or
	// build metadata differs.
	MagnitudePrerelease Magnitude = "prerelease"
	MagnitudeNone       Magnitude = "none"
	MagnitudeUnknown    Magnitude = "unknown"
)

// VersionChange is one classified transition.
type VersionChange struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Direction Direction `json:"direction"`
	Magnitude Magnitude `json:"magnitude"`
}

// Classify compares two version strings. Anything that does not parse as
// semver comes back unknown rather than failing; chart tags are not always
// well formed.
func Classify(from, to string) VersionChange {
	change := VersionChange{From: from, To: to}

	if from == "" || to == "" {
		change.Direction = DirectionUnknown
		change.Magnitude = MagnitudeUnknown
		return change
	}

	fromVersion, errFrom := semver.NewVersion(from)
	toVersion, errTo := semver.NewVersion(to)
	if errFrom != nil || errTo != nil {
		change.Direction = DirectionUnknown
		change.Magnitude = MagnitudeUnknown
		return change
	}

	switch cmp := toVersion.Compare(fromVersion); {
	case cmp > 0:
		change.Direction = DirectionUpgrade
	case cmp < 0:
		change.Direction = DirectionDowngrade
	default:
		change.Direction = DirectionNone
		change.Magnitude = MagnitudeNone
		return change
	}

	switch {
	case toVersion.Major() != fromVersion.Major():
		change.Magnitude = MagnitudeMajor
	case toVersion.Minor() != fromVersion.Minor():
		change.Magnitude = MagnitudeMinor
	case toVersion.Patch() != fromVersion.Patch():
		change.Magnitude = MagnitudePatch
	default:
		change.Magnitude = MagnitudePrerelease
	}
	return change
}

// Summarize classifies the consecutive chart version transitions in a
// resource's metrics history, oldest first. Snapshots without a chart
// version are skipped.
func Summarize(history []types.ResourceMetrics) []VersionChange {
	var changes []VersionChange
	previous := ""

	for _, snapshot := range history {
		version := snapshot.ChartVersion
		if version == "" {
			continue
		}
		if previous != "" && version != previous {
			changes = append(changes, Classify(previous, version))
		}
		previous = version
	}
	return changes
}
