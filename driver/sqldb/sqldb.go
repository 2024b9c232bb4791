// Package sqldb implements driver.Driver on top of database/sql. Database specific
// queries are supplied by a Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/root-talis/tsmig/driver"
	"github.com/root-talis/tsmig/migration"
)

// Dialect provides the queries for managing the versions table. The table name
// is already escaped by the dialect.
type Dialect interface {
	CreateTableQuery() string
	SelectVersionsQuery() string
	InsertVersionQuery() string
	DeleteVersionQuery() string
}

type Driver struct {
	conn    *sql.DB
	dialect Dialect
}

var _ driver.Driver = &Driver{}

func New(conn *sql.DB, dialect Dialect) *Driver {
	return &Driver{
		conn:    conn,
		dialect: dialect,
	}
}

// DB returns the underlying connection pool.
func (drv *Driver) DB() *sql.DB {
	return drv.conn
}

func (drv *Driver) ListAppliedVersions(ctx context.Context) ([]migration.Version, error) {
	if err := drv.ensureVersionsTableExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to list applied versions: %w", err)
	}

	rows, err := drv.conn.QueryContext(ctx, drv.dialect.SelectVersionsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list applied versions: %w", err)
	}
	defer rows.Close()

	return fetchVersions(rows)
}

func fetchVersions(rows *sql.Rows) ([]migration.Version, error) {
	result := make([]migration.Version, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to query versions table: %w", err)
		}

		version, err := migration.ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", driver.ErrInvalidVersionTable, err.Error())
		}

		result = append(result, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query versions table: %w", err)
	}

	return result, nil
}

func (drv *Driver) Begin(ctx context.Context) (driver.Tx, error) {
	// some databases commit DDL implicitly, so the table is created outside of the transaction
	if err := drv.ensureVersionsTableExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx, err := drv.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Tx{tx: tx, dialect: drv.dialect}, nil
}

func (drv *Driver) ensureVersionsTableExists(ctx context.Context) error {
	if _, err := drv.conn.ExecContext(ctx, drv.dialect.CreateTableQuery()); err != nil {
		return fmt.Errorf("failed to create versions table: %w", err)
	}

	return nil
}

// ---

type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

var _ driver.Tx = &Tx{}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute a query: %w", err)
	}
	return nil
}

func (t *Tx) ExecScript(ctx context.Context, script string) error {
	if _, err := t.tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed to execute a script: %w", err)
	}
	return nil
}

// Record inserts every version of add and then deletes every version of remove.
func (t *Tx) Record(ctx context.Context, add, remove []migration.Version) error {
	for _, versions := range [][]migration.Version{add, remove} {
		for _, version := range versions {
			if !version.IsValid() {
				return fmt.Errorf("failed to record versions: %w: %q", migration.ErrInvalidVersion, version)
			}
		}
	}

	for _, version := range add {
		if _, err := t.tx.ExecContext(ctx, t.dialect.InsertVersionQuery(), string(version)); err != nil {
			return fmt.Errorf("failed to record version %s: %w", version, err)
		}
	}

	for _, version := range remove {
		if _, err := t.tx.ExecContext(ctx, t.dialect.DeleteVersionQuery(), string(version)); err != nil {
			return fmt.Errorf("failed to remove version %s: %w", version, err)
		}
	}

	return nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is not an error.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}
