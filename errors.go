package tsmig

import (
	"errors"
	"fmt"

	"github.com/root-talis/tsmig/migration"
)

var (
	ErrNoMigrations    = errors.New("there are no migration files")
	ErrUnknownTarget   = errors.New("there is no such migration version")
	ErrUnknownVersions = errors.New("there are unknown migrations on list, remove them first")
	ErrMigrationFailed = errors.New("migrations have been rolled back because of an error")
)

// MigrationError is returned by Migrate once the transaction has been rolled back.
// Version and Direction are set when a migration unit failed; they are empty when
// the failure happened while recording versions or committing.
type MigrationError struct {
	Version   migration.Version
	Direction migration.Direction
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != migration.None {
		return fmt.Sprintf("%s: migration %s (%s): %v", ErrMigrationFailed, e.Version, e.Direction, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrMigrationFailed, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed //nolint:errorlint
}
