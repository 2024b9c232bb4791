package driver

import (
	"context"
	"errors"

	"github.com/root-talis/tsmig/migration"
)

// Driver gives access to the applied versions table of a target database.
// Both methods create the table when it does not exist yet.
type Driver interface {
	ListAppliedVersions(ctx context.Context) ([]migration.Version, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction on the target database. Migration units run against it
// and the applied versions are recorded through it before commit.
type Tx interface {
	migration.Conn

	Record(ctx context.Context, add, remove []migration.Version) error
	Commit() error
	Rollback() error
}

// Locker is implemented by drivers that can hold a database-wide advisory lock
// for the duration of a migration run.
type Locker interface {
	Lock(ctx context.Context) (release func() error, err error)
}

var (
	ErrInvalidVersionTable = errors.New("an error has occurred when reading versions table")
	ErrLockTimeout         = errors.New("timed out waiting for migrations lock")
)
