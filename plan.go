package tsmig

import (
	"fmt"

	"github.com/root-talis/tsmig/migration"
)

// Step is a single migration unit run in a direction.
type Step struct {
	Version   migration.Version
	Direction migration.Direction
}

// Plan is an ordered transition from the current version to the target one,
// together with the changes to the applied versions table.
type Plan struct {
	Target    migration.Version
	Current   migration.Version
	Direction migration.Direction
	Steps     []Step

	// Add holds versions that become applied once the plan commits.
	Add []migration.Version
	// Remove holds versions that stop being applied once the plan commits.
	Remove []migration.Version
}

// IsNoop reports whether the plan would change nothing.
func (p *Plan) IsNoop() bool {
	return len(p.Steps) == 0 && len(p.Add) == 0 && len(p.Remove) == 0
}

// NewPlan computes the transition from status to target. migration.None targets the last known
// version, migration.Empty rolls back everything. Unknown applied versions are refused unless
// removeUnknown is set, in which case they are dropped from the table without running anything.
func NewPlan(status *Status, target migration.Version, removeUnknown bool) (*Plan, error) {
	if len(status.Existed) == 0 {
		return nil, ErrNoMigrations
	}

	if target == migration.None {
		target = status.Last
	}

	if target != migration.Empty && !contains(status.Existed, target) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}

	if len(status.Unknown) > 0 && !removeUnknown {
		return nil, fmt.Errorf("%w: %v", ErrUnknownVersions, status.Unknown)
	}

	plan := Plan{
		Target:  target,
		Current: status.Current,
		Steps:   make([]Step, 0),
		Add:     make([]migration.Version, 0),
		Remove:  make([]migration.Version, 0),
	}

	switch {
	case target == status.Current:
		// nothing to run

	case target == migration.Empty || target < status.Current:
		plan.Direction = migration.Down

		for i := len(status.Implemented) - 1; i >= 0; i-- {
			version := status.Implemented[i]
			if target != migration.Empty && version <= target {
				break
			}

			plan.Steps = append(plan.Steps, Step{Version: version, Direction: migration.Down})
			plan.Remove = append(plan.Remove, version)
		}

	default:
		plan.Direction = migration.Up

		for _, version := range status.New {
			if version > target {
				break
			}

			plan.Steps = append(plan.Steps, Step{Version: version, Direction: migration.Up})
			plan.Add = append(plan.Add, version)
		}
	}

	if removeUnknown {
		plan.Remove = append(plan.Remove, status.Unknown...)
	}

	return &plan, nil
}

func contains(versions []migration.Version, version migration.Version) bool {
	for _, v := range versions {
		if v == version {
			return true
		}
	}
	return false
}
