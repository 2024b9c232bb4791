package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/root-talis/tsmig/driver"
	"github.com/root-talis/tsmig/driver/sqldb"
)

type DriverConfig struct {
	DatabaseName      string
	VersionsTableName string
	LockTimeout       time.Duration
}

const (
	DefaultVersionsTableName = "migrations"
	DefaultLockTimeout       = 10 * time.Second

	maxLockNameLength = 64
)

type Driver struct {
	*sqldb.Driver
	config DriverConfig
}

var (
	_ driver.Driver = &Driver{}
	_ driver.Locker = &Driver{}
)

func NewDriver(conn *sql.DB, config DriverConfig) *Driver {
	if config.VersionsTableName == "" {
		config.VersionsTableName = DefaultVersionsTableName
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultLockTimeout
	}

	return &Driver{
		Driver: sqldb.New(conn, newDialect(config)),
		config: config,
	}
}

// Open connects to the database described by dsn. Multi-statement support is
// switched on since migration scripts usually hold more than one statement.
// An empty config.DatabaseName is taken from dsn.
func Open(dsn string, config DriverConfig) (*Driver, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.MultiStatements = true

	if config.DatabaseName == "" {
		config.DatabaseName = cfg.DBName
	}
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("failed to open mysql database: no database name in dsn")
	}

	conn, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}

	return NewDriver(conn, config), nil
}

func (drv *Driver) Close() error {
	return drv.DB().Close()
}

// Lock takes a named lock with GET_LOCK. Named locks belong to a session, so a
// dedicated connection is held until release is called.
func (drv *Driver) Lock(ctx context.Context) (func() error, error) {
	conn, err := drv.DB().Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migrations lock: %w", err)
	}

	name := drv.lockName()
	seconds := int64(math.Ceil(drv.config.LockTimeout.Seconds()))

	var acquired sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, seconds).Scan(&acquired)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to acquire migrations lock: %w", err)
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", driver.ErrLockTimeout, name)
	}

	release := func() error {
		defer conn.Close()

		var released sql.NullInt64
		err := conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", name).Scan(&released)
		if err != nil {
			return fmt.Errorf("failed to release migrations lock: %w", err)
		}
		return nil
	}

	return release, nil
}

func (drv *Driver) lockName() string {
	name := "tsmig:" + drv.config.DatabaseName + "." + drv.config.VersionsTableName
	if len(name) > maxLockNameLength {
		name = name[:maxLockNameLength]
	}
	return name
}

// ---

type dialect struct {
	table string
}

func newDialect(config DriverConfig) dialect {
	return dialect{
		table: quoteIdentifier(config.DatabaseName) + "." + quoteIdentifier(config.VersionsTableName),
	}
}

func (d dialect) CreateTableQuery() string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s ("+
			"version char(14) not null, "+
			"primary key (version)"+
			") default charset utf8",
		d.table,
	)
}

func (d dialect) SelectVersionsQuery() string {
	return fmt.Sprintf("SELECT version FROM %s", d.table)
}

func (d dialect) InsertVersionQuery() string {
	return fmt.Sprintf("INSERT INTO %s (version) VALUES (?)", d.table)
}

func (d dialect) DeleteVersionQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE version = ?", d.table)
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
