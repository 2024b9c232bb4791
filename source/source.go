package source

import (
	"errors"

	"github.com/root-talis/tsmig/migration"
)

// Source lists the migrations known to the application and builds them by version.
type Source interface {
	// ListVersions returns known versions in ascending order.
	ListVersions() ([]migration.Version, error)
	Load(version migration.Version) (migration.Factory, error)
}

var (
	ErrMigrationNotFound   = errors.New("migration is not found")
	ErrMigrationDuplicated = errors.New("migration version already exists")
)
