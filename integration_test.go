package tsmig_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-talis/tsmig"
	"github.com/root-talis/tsmig/driver/sqlite"
	"github.com/root-talis/tsmig/migration"
	"github.com/root-talis/tsmig/source/registry"
)

// createTable creates table_<version> on up and drops it on down.
type createTable struct {
	conn    migration.Conn
	version migration.Version
	fail    bool
}

func (m *createTable) Up(ctx context.Context) error {
	if m.fail {
		return errors.New("broken migration")
	}
	return m.conn.Exec(ctx, fmt.Sprintf("CREATE TABLE table_%s (id INTEGER PRIMARY KEY)", m.version))
}

func (m *createTable) Down(ctx context.Context) error {
	return m.conn.Exec(ctx, fmt.Sprintf("DROP TABLE table_%s", m.version))
}

func newRegistry(t *testing.T, failing migration.Version, versions ...migration.Version) *registry.Registry {
	t.Helper()

	r := registry.New()
	for _, version := range versions {
		version := version
		r.MustRegister(version, func(conn migration.Conn) migration.Migration {
			return &createTable{conn: conn, version: version, fail: version == failing}
		})
	}

	return r
}

func openSqlite(t *testing.T) *sqlite.Driver {
	t.Helper()

	drv, err := sqlite.Open(filepath.Join(t.TempDir(), "tsmig.db"), sqlite.DriverConfig{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = drv.Close()
	})

	return drv
}

func tables(t *testing.T, drv *sqlite.Driver) []string {
	t.Helper()

	rows, err := drv.DB().Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'table_%' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		result = append(result, name)
	}
	require.NoError(t, rows.Err())

	return result
}

func TestScenarioOnSqlite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := openSqlite(t)
	migrator := tsmig.New(newRegistry(t, migration.None, "20200101120000", "20200102120000"), drv)

	status, err := migrator.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, migration.None, status.Current)
	assert.Equal(t, migration.Version("20200102120000"), status.Last)
	assert.Equal(t, versions("20200101120000", "20200102120000"), status.New)

	_, err = migrator.Migrate(ctx, "20200101120000", false)
	require.NoError(t, err)

	status, err = migrator.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, versions("20200101120000"), status.Implemented)
	assert.Equal(t, migration.Version("20200101120000"), status.Current)
	assert.Equal(t, []string{"table_20200101120000"}, tables(t, drv))

	_, err = migrator.Migrate(ctx, migration.None, false)
	require.NoError(t, err)

	status, err = migrator.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, versions("20200101120000", "20200102120000"), status.Implemented)
	assert.True(t, status.IsLast())

	plan, err := migrator.Migrate(ctx, migration.None, false)
	require.NoError(t, err)
	assert.True(t, plan.IsNoop())

	_, err = migrator.Migrate(ctx, migration.Empty, false)
	require.NoError(t, err)

	status, err = migrator.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.Implemented)
	assert.Equal(t, migration.None, status.Current)
	assert.Empty(t, tables(t, drv))
}

func TestRoundTripOnSqlite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := openSqlite(t)
	migrator := tsmig.New(newRegistry(t, migration.None, "20230101000000", "20230102000000", "20230103000000"), drv)

	_, err := migrator.Migrate(ctx, "20230101000000", false)
	require.NoError(t, err)

	before, err := drv.ListAppliedVersions(ctx)
	require.NoError(t, err)

	_, err = migrator.Migrate(ctx, "20230103000000", false)
	require.NoError(t, err)
	assert.Len(t, tables(t, drv), 3)

	_, err = migrator.Migrate(ctx, "20230101000000", false)
	require.NoError(t, err)

	after, err := drv.ListAppliedVersions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)
	assert.Equal(t, []string{"table_20230101000000"}, tables(t, drv))
}

func TestFailedMigrationLeavesNoTraceOnSqlite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := openSqlite(t)
	all := versions("20230101000000", "20230102000000", "20230103000000", "20230104000000", "20230105000000")
	migrator := tsmig.New(newRegistry(t, "20230103000000", all...), drv)

	_, err := migrator.Migrate(ctx, migration.None, false)
	assert.ErrorIs(t, err, tsmig.ErrMigrationFailed)

	var migrationErr *tsmig.MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.Equal(t, migration.Version("20230103000000"), migrationErr.Version)

	applied, err := drv.ListAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Empty(t, tables(t, drv))
}

func TestUnknownVersionsOnSqlite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := openSqlite(t)
	migrator := tsmig.New(newRegistry(t, migration.None, "20230101000000"), drv)

	_, err := migrator.Migrate(ctx, migration.None, false)
	require.NoError(t, err)

	_, err = drv.DB().Exec(`INSERT INTO "migrations" (version) VALUES ('20220101000000')`)
	require.NoError(t, err)

	_, err = migrator.Migrate(ctx, migration.Empty, false)
	assert.ErrorIs(t, err, tsmig.ErrUnknownVersions)
	assert.Equal(t, []string{"table_20230101000000"}, tables(t, drv))

	plan, err := migrator.Migrate(ctx, migration.None, true)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.Equal(t, versions("20220101000000"), plan.Remove)

	status, err := migrator.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.Unknown)
	assert.Equal(t, versions("20230101000000"), status.Implemented)
}
