// Package registry is a source of migrations written in Go. Each migration is
// registered under its version, usually from an init function:
//
//	func init() {
//		registry.MustRegister("20230101000000", func(conn migration.Conn) migration.Migration {
//			return &createUsers{conn: conn}
//		})
//	}
package registry

import (
	"fmt"
	"sync"

	"github.com/root-talis/tsmig/migration"
	"github.com/root-talis/tsmig/source"
)

type Registry struct {
	mu        sync.RWMutex
	factories map[migration.Version]migration.Factory
}

var _ source.Source = &Registry{}

func New() *Registry {
	return &Registry{
		factories: make(map[migration.Version]migration.Factory),
	}
}

func (r *Registry) Register(version migration.Version, factory migration.Factory) error {
	if _, err := migration.ParseVersion(string(version)); err != nil {
		return fmt.Errorf("failed to register migration: %w", err)
	}
	if factory == nil {
		return fmt.Errorf("failed to register migration %s: factory is nil", version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[version]; exists {
		return fmt.Errorf("failed to register migration: %w: %s", source.ErrMigrationDuplicated, version)
	}

	r.factories[version] = factory

	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(version migration.Version, factory migration.Factory) {
	if err := r.Register(version, factory); err != nil {
		panic(err)
	}
}

func (r *Registry) ListVersions() ([]migration.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]migration.Version, 0, len(r.factories))
	for version := range r.factories {
		versions = append(versions, version)
	}

	migration.Sort(versions)

	return versions, nil
}

func (r *Registry) Load(version migration.Version) (migration.Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrMigrationNotFound, version)
	}

	return factory, nil
}

// ---

var defaultRegistry = New() //nolint:gochecknoglobals

// Default returns the registry filled by the package level Register functions.
func Default() *Registry {
	return defaultRegistry
}

func Register(version migration.Version, factory migration.Factory) error {
	return defaultRegistry.Register(version, factory)
}

func MustRegister(version migration.Version, factory migration.Factory) {
	defaultRegistry.MustRegister(version, factory)
}
