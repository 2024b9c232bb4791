// Package files is a source of migrations stored as SQL scripts in a directory.
// Every migration is a pair of files named <prefix><version>.up.sql and
// <prefix><version>.down.sql, e.g. Version20230101000000.up.sql.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/root-talis/tsmig/migration"
	"github.com/root-talis/tsmig/source"
)

const (
	DefaultPrefix = "Version"

	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

var (
	ErrNotADirectory    = errors.New("migrations directory is not a directory")
	ErrNoDownScript     = errors.New("migration has no down script")
	ErrMigrationExists  = errors.New("migration file already exists")
	ErrInvalidPrefix    = errors.New("migration file name prefix is invalid")
	ErrInvalidFileName  = errors.New("migration file name is invalid")
	errUnknownExtension = errors.New("file is not a migration script")
)

type fileSource struct {
	fsys   fs.FS
	dir    string
	prefix string
}

var _ source.Source = &fileSource{}

// NewSource reads migrations from dir inside fsys. A missing directory holds no migrations.
func NewSource(fsys fs.FS, dir string, prefix string) (source.Source, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}

	stat, err := fs.Stat(fsys, dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to stat migrations directory: %w", err)
	case !stat.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	return &fileSource{
		fsys:   fsys,
		dir:    dir,
		prefix: prefix,
	}, nil
}

// NewDirSource reads migrations from a directory of the local file system.
func NewDirSource(dir string, prefix string) (source.Source, error) {
	return NewSource(os.DirFS(dir), ".", prefix)
}

func validatePrefix(prefix string) error {
	if prefix == "" || strings.ContainsAny(prefix, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return nil
}

func (src *fileSource) ListVersions() ([]migration.Version, error) {
	dirEntries, err := fs.ReadDir(src.fsys, src.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []migration.Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read contents of migrations directory: %w", err)
	}

	versions := make([]migration.Version, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}

		version, direction, err := src.parseFileName(entry.Name())
		if err != nil || direction != migration.Up {
			continue
		}

		versions = append(versions, version)
	}

	migration.Sort(versions)

	return versions, nil
}

func (src *fileSource) parseFileName(fileName string) (migration.Version, migration.Direction, error) {
	if !strings.HasPrefix(fileName, src.prefix) {
		return migration.None, 0, fmt.Errorf("%w: %s", ErrInvalidFileName, fileName)
	}

	rest := strings.TrimPrefix(fileName, src.prefix)

	var direction migration.Direction
	switch {
	case strings.HasSuffix(rest, upSuffix):
		direction = migration.Up
		rest = strings.TrimSuffix(rest, upSuffix)
	case strings.HasSuffix(rest, downSuffix):
		direction = migration.Down
		rest = strings.TrimSuffix(rest, downSuffix)
	default:
		return migration.None, 0, fmt.Errorf("%w: %s", errUnknownExtension, fileName)
	}

	version, err := migration.ParseVersion(rest)
	if err != nil {
		return migration.None, 0, fmt.Errorf("%w: %s: %s", ErrInvalidFileName, fileName, err.Error())
	}

	return version, direction, nil
}

func (src *fileSource) scriptPath(version migration.Version, direction migration.Direction) string {
	suffix := upSuffix
	if direction == migration.Down {
		suffix = downSuffix
	}
	return path.Join(src.dir, src.prefix+string(version)+suffix)
}

// Load reads both scripts of the migration right away, so broken files are
// reported before any of them runs.
func (src *fileSource) Load(version migration.Version) (migration.Factory, error) {
	up, err := fs.ReadFile(src.fsys, src.scriptPath(version, migration.Up))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", source.ErrMigrationNotFound, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migration %s: %w", version, err)
	}

	down, err := fs.ReadFile(src.fsys, src.scriptPath(version, migration.Down))
	hasDown := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read migration %s: %w", version, err)
	}

	return func(conn migration.Conn) migration.Migration {
		return &scriptMigration{
			conn:    conn,
			version: version,
			up:      string(up),
			down:    string(down),
			hasDown: hasDown,
		}
	}, nil
}

// ---

type scriptMigration struct {
	conn    migration.Conn
	version migration.Version
	up      string
	down    string
	hasDown bool
}

func (m *scriptMigration) Up(ctx context.Context) error {
	return m.run(ctx, m.up)
}

func (m *scriptMigration) Down(ctx context.Context) error {
	if !m.hasDown {
		return fmt.Errorf("%w: %s", ErrNoDownScript, m.version)
	}
	return m.run(ctx, m.down)
}

func (m *scriptMigration) run(ctx context.Context, script string) error {
	if isBlank(script) {
		return nil
	}
	return m.conn.ExecScript(ctx, script)
}

// isBlank reports whether script holds nothing but whitespace and line comments.
func isBlank(script string) bool {
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// ---

const scriptTemplate = "-- Version %s (%s)\n-- add statements\n"

// Create writes empty up and down scripts for a new migration versioned by now.
// The directory is created when it does not exist.
func Create(dir string, prefix string, now time.Time) (migration.Version, []string, error) {
	if err := validatePrefix(prefix); err != nil {
		return migration.None, nil, err
	}

	const dirPerm = 0o755
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return migration.None, nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := migration.NewVersion(now)

	versionTime, err := version.Time()
	if err != nil {
		return migration.None, nil, err
	}
	header := versionTime.Format("2006-01-02 15:04:05")

	created := make([]string, 0, 2)
	for _, direction := range []migration.Direction{migration.Up, migration.Down} {
		suffix := upSuffix
		if direction == migration.Down {
			suffix = downSuffix
		}

		filePath := filepath.Join(dir, prefix+string(version)+suffix)
		if err := writeNewFile(filePath, fmt.Sprintf(scriptTemplate, header, direction)); err != nil {
			for _, p := range created {
				_ = os.Remove(p)
			}
			return migration.None, nil, err
		}

		created = append(created, filePath)
	}

	return version, created, nil
}

func writeNewFile(filePath string, content string) error {
	const filePerm = 0o644

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrMigrationExists, filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration file: %w", err)
	}

	if _, err := file.WriteString(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}
