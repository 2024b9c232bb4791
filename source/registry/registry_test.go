package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-talis/tsmig/migration"
	"github.com/root-talis/tsmig/source"
	"github.com/root-talis/tsmig/source/registry"
)

type nopMigration struct {
	conn migration.Conn
}

func (m *nopMigration) Up(context.Context) error   { return nil }
func (m *nopMigration) Down(context.Context) error { return nil }

func newNop(conn migration.Conn) migration.Migration {
	return &nopMigration{conn: conn}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := registry.New()

	require.NoError(t, r.Register("20230103000000", newNop))
	require.NoError(t, r.Register("20230101000000", newNop))
	r.MustRegister("20230102000000", newNop)

	versions, err := r.ListVersions()
	assert.NoError(t, err)
	assert.Equal(t, []migration.Version{"20230101000000", "20230102000000", "20230103000000"}, versions)

	factory, err := r.Load("20230102000000")
	require.NoError(t, err)

	m := factory(nil)
	assert.IsType(t, &nopMigration{}, m)

	_, err = r.Load("20230104000000")
	assert.ErrorIs(t, err, source.ErrMigrationNotFound)
}

func TestRegistryErrors(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Register("20230101000000", newNop))

	assert.ErrorIs(t, r.Register("20230101000000", newNop), source.ErrMigrationDuplicated)
	assert.ErrorIs(t, r.Register("2023", newNop), migration.ErrInvalidVersion)
	assert.ErrorIs(t, r.Register(migration.Empty, newNop), migration.ErrInvalidVersion)
	assert.Error(t, r.Register("20230102000000", nil))

	assert.Panics(t, func() {
		r.MustRegister("20230101000000", newNop)
	})
}

func TestEmptyRegistry(t *testing.T) {
	t.Parallel()

	versions, err := registry.New().ListVersions()
	assert.NoError(t, err)
	assert.Empty(t, versions)
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	registry.MustRegister("19990101000000", newNop)
	assert.ErrorIs(t, registry.Register("19990101000000", newNop), source.ErrMigrationDuplicated)

	versions, err := registry.Default().ListVersions()
	assert.NoError(t, err)
	assert.Contains(t, versions, migration.Version("19990101000000"))
}
