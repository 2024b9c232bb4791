// Package sqlite provides a migrations driver for SQLite databases backed by the
// CGo-free modernc.org/sqlite port. SQLite runs DDL inside transactions, so schema
// changes and the versions table always commit together.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Package sqlite is a CGo-free port of SQLite/SQLite3.
	_ "modernc.org/sqlite"

	"github.com/root-talis/tsmig/driver/sqldb"
)

const DefaultVersionsTableName = "migrations"

type DriverConfig struct {
	VersionsTableName string
}

type Driver struct {
	*sqldb.Driver
}

func NewDriver(conn *sql.DB, config DriverConfig) *Driver {
	if config.VersionsTableName == "" {
		config.VersionsTableName = DefaultVersionsTableName
	}

	return &Driver{
		Driver: sqldb.New(conn, dialect{table: quoteIdentifier(config.VersionsTableName)}),
	}
}

// Open opens the database file at dsn. SQLite allows one writer at a time, so the
// pool is limited to a single connection.
func Open(dsn string, config DriverConfig) (*Driver, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	return NewDriver(conn, config), nil
}

func (drv *Driver) Close() error {
	return drv.DB().Close()
}

// ---

type dialect struct {
	table string
}

func (d dialect) CreateTableQuery() string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version CHAR(14) NOT NULL, PRIMARY KEY (version))",
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
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
