package cli

import (
	"fmt"

	"github.com/root-talis/tsmig"
	"github.com/root-talis/tsmig/driver"
	"github.com/root-talis/tsmig/driver/mysql"
	"github.com/root-talis/tsmig/driver/sqlite"
	"github.com/root-talis/tsmig/internal/config"
	"github.com/root-talis/tsmig/source/files"
)

type closableDriver interface {
	driver.Driver
	Close() error
}

func openDriver(cfg config.Config) (closableDriver, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN, mysql.DriverConfig{
			VersionsTableName: cfg.Table,
			LockTimeout:       cfg.LockTimeout,
		})
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN, sqlite.DriverConfig{
			VersionsTableName: cfg.Table,
		})
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// withMigrator opens the database and the migrations directory for the duration of run.
func (o *options) withMigrator(run func(migrator tsmig.Migrator) error) (err error) {
	if err := o.config.Validate(); err != nil {
		return err
	}

	src, err := files.NewDirSource(o.config.Dir, o.config.Prefix)
	if err != nil {
		return err
	}

	drv, err := openDriver(o.config)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := drv.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", closeErr)
		}
	}()

	return run(tsmig.New(src, drv, tsmig.WithLogger(o.logger)))
}
