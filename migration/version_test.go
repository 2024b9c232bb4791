package migration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/root-talis/tsmig/migration"
)

var parseVersionTestTable = []struct { // nolint:gochecknoglobals
	name        string
	input       string
	expected    migration.Version
	expectError bool
}{
	/* s0 */ {name: "test s0: should accept a valid version", input: "20230101000000", expected: "20230101000000"},
	/* s1 */ {name: "test s1: should accept all zeroes", input: "00000000000000", expected: "00000000000000"},

	/* e0 */ {name: "test e0: should fail on a short version", input: "2023010100000", expectError: true},
	/* e1 */ {name: "test e1: should fail on a long version", input: "202301010000000", expectError: true},
	/* e2 */ {name: "test e2: should fail on a letter", input: "2023010100000a", expectError: true},
	/* e3 */ {name: "test e3: should fail on the empty sentinel", input: "empty", expectError: true},
	/* e4 */ {name: "test e4: should fail on an empty string", input: "", expectError: true},
	/* e5 */ {name: "test e5: should fail on non-ascii digits", input: "2023010100000٣", expectError: true},
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	for _, test := range parseVersionTestTable {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			actual, err := migration.ParseVersion(test.input)
			if test.expectError {
				assert.ErrorIs(t, err, migration.ErrInvalidVersion)
				assert.Equal(t, migration.None, actual)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, test.expected, actual)
			}
		})
	}
}

func TestNewVersion(t *testing.T) {
	t.Parallel()

	moscow := time.FixedZone("MSK", 3*60*60)
	v := migration.NewVersion(time.Date(2023, 1, 2, 3, 4, 5, 0, moscow))
	assert.Equal(t, migration.Version("20230102000405"), v)
	assert.True(t, v.IsValid())

	parsed, err := v.Time()
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 4, 5, 0, time.UTC), parsed)
}

func TestSort(t *testing.T) {
	t.Parallel()

	versions := []migration.Version{"20230103000000", "20230101000000", "20230102000000"}

	migration.Sort(versions)
	assert.Equal(t, []migration.Version{"20230101000000", "20230102000000", "20230103000000"}, versions)
}

// ---

type recordingMigration struct {
	calls []string
}

func (m *recordingMigration) Up(context.Context) error {
	m.calls = append(m.calls, "up")
	return nil
}

func (m *recordingMigration) Down(context.Context) error {
	m.calls = append(m.calls, "down")
	return nil
}

func TestDirectionApply(t *testing.T) {
	t.Parallel()

	m := &recordingMigration{}
	ctx := context.Background()

	assert.NoError(t, migration.Up.Apply(ctx, m))
	assert.NoError(t, migration.Down.Apply(ctx, m))
	assert.ErrorIs(t, migration.Direction('x').Apply(ctx, m), migration.ErrInvalidDirection)

	assert.Equal(t, []string{"up", "down"}, m.calls)
	assert.Equal(t, "up", migration.Up.String())
	assert.Equal(t, "down", migration.Down.String())
}

func TestNoScripts(t *testing.T) {
	t.Parallel()

	var conn struct{ migration.NoScripts }
	err := conn.ExecScript(context.Background(), "select 1")
	assert.True(t, errors.Is(err, migration.ErrUnsupportedOperation))
}
