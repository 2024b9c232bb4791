package migration

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Version is a 14 digit UTC timestamp (YYYYMMDDHHMMSS). Since the width is fixed,
// string order is chronological order.
type Version string

const (
	// Empty is a migrate target meaning "roll back everything".
	Empty Version = "empty"

	// None marks an absent version: no current or last version, or an omitted target.
	None Version = ""
)

const (
	VersionLength = 14
	versionLayout = "20060102150405"
)

var ErrInvalidVersion = errors.New("invalid migration version")

// NewVersion formats t in UTC as a Version.
func NewVersion(t time.Time) Version {
	return Version(t.UTC().Format(versionLayout))
}

// ParseVersion validates s against the version format.
func ParseVersion(s string) (Version, error) {
	if len(s) != VersionLength {
		return None, fmt.Errorf("%w: %q must be %d digits long", ErrInvalidVersion, s, VersionLength)
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return None, fmt.Errorf("%w: symbol %q is not allowed in %q", ErrInvalidVersion, c, s)
		}
	}

	return Version(s), nil
}

func (v Version) IsValid() bool {
	_, err := ParseVersion(string(v))
	return err == nil
}

// Time returns the timestamp encoded in v.
func (v Version) Time() (time.Time, error) {
	t, err := time.ParseInLocation(versionLayout, string(v), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidVersion, err.Error())
	}
	return t, nil
}

func (v Version) String() string {
	return string(v)
}

// ---

// Sort sorts versions in ascending order.
func Sort(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i] < versions[j]
	})
}
