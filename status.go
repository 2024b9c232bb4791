package tsmig

import (
	"github.com/root-talis/tsmig/migration"
)

// Status is a snapshot of known and applied migrations. All lists are in ascending order.
//
// Existed is always the disjoint union of Implemented, Missed and New.
type Status struct {
	// Existed holds every version known to the source.
	Existed []migration.Version
	// Implemented holds known versions that are applied.
	Implemented []migration.Version
	// Unknown holds applied versions the source knows nothing about.
	Unknown []migration.Version
	// Missed holds known versions that are not applied but older than Current.
	Missed []migration.Version
	// New holds known versions that are not applied and newer than Current.
	New []migration.Version

	// Current is the greatest implemented version, or migration.None.
	Current migration.Version
	// Last is the greatest known version, or migration.None.
	Last migration.Version
}

// IsLast reports whether the newest known migration is the current one.
func (s *Status) IsLast() bool {
	return s.Current != migration.None && s.Current == s.Last
}

func resolveStatus(existed []migration.Version, applied []migration.Version) *Status {
	existed = sortedUnique(existed)
	applied = sortedUnique(applied)

	appliedSet := toSet(applied)
	existedSet := toSet(existed)

	status := Status{
		Existed:     existed,
		Implemented: make([]migration.Version, 0, len(applied)),
		Unknown:     make([]migration.Version, 0),
		Missed:      make([]migration.Version, 0),
		New:         make([]migration.Version, 0, len(existed)),
		Current:     migration.None,
		Last:        migration.None,
	}

	for _, version := range existed {
		if appliedSet[version] {
			status.Implemented = append(status.Implemented, version)
		}
	}

	for _, version := range applied {
		if !existedSet[version] {
			status.Unknown = append(status.Unknown, version)
		}
	}

	if n := len(status.Implemented); n > 0 {
		status.Current = status.Implemented[n-1]
	}
	if n := len(existed); n > 0 {
		status.Last = existed[n-1]
	}

	for _, version := range existed {
		if appliedSet[version] {
			continue
		}

		if version < status.Current {
			status.Missed = append(status.Missed, version)
		} else {
			status.New = append(status.New, version)
		}
	}

	return &status
}

func sortedUnique(versions []migration.Version) []migration.Version {
	result := make([]migration.Version, 0, len(versions))
	result = append(result, versions...)
	migration.Sort(result)

	unique := result[:0]
	for i, version := range result {
		if i == 0 || version != result[i-1] {
			unique = append(unique, version)
		}
	}

	return unique
}

func toSet(versions []migration.Version) map[migration.Version]bool {
	set := make(map[migration.Version]bool, len(versions))
	for _, version := range versions {
		set[version] = true
	}
	return set
}
