// Package tsmig reconciles timestamp-versioned migrations with the versions applied
// to a database and moves the database to the requested version in one transaction.
package tsmig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/root-talis/tsmig/driver"
	"github.com/root-talis/tsmig/migration"
	"github.com/root-talis/tsmig/source"
)

// ---

type Migrator interface {
	// Status compares migrations known to the source with versions applied to the database.
	Status(ctx context.Context) (*Status, error)

	// Plan computes what Migrate would do without running anything.
	Plan(ctx context.Context, target migration.Version, removeUnknown bool) (*Plan, error)

	// Migrate moves the database to target. migration.None means the last known version,
	// migration.Empty rolls back every applied migration.
	Migrate(ctx context.Context, target migration.Version, removeUnknown bool) (*Plan, error)
}

type Option func(m *migratorImpl)

// WithLogger sets the logger used for progress reporting. Nothing is logged by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *migratorImpl) {
		m.logger = logger
	}
}

// ---

type migratorImpl struct {
	source source.Source
	driver driver.Driver
	logger zerolog.Logger
}

// ---

func New(src source.Source, drv driver.Driver, opts ...Option) Migrator {
	m := &migratorImpl{
		source: src,
		driver: drv,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ---

func (m *migratorImpl) Status(ctx context.Context) (*Status, error) {
	existed, err := m.source.ListVersions()
	if err != nil {
		return nil, fmt.Errorf("failed to get the list of available migrations: %w", err)
	}

	applied, err := m.driver.ListAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get the list of applied migrations: %w", err)
	}

	return resolveStatus(existed, applied), nil
}

func (m *migratorImpl) Plan(ctx context.Context, target migration.Version, removeUnknown bool) (*Plan, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	return NewPlan(status, target, removeUnknown)
}

func (m *migratorImpl) Migrate(ctx context.Context, target migration.Version, removeUnknown bool) (plan *Plan, err error) {
	logger := m.logger.With().Str("run", uuid.NewString()).Logger()

	if locker, ok := m.driver.(driver.Locker); ok {
		release, err := locker.Lock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire migrations lock: %w", err)
		}

		defer func() {
			if releaseErr := release(); releaseErr != nil {
				logger.Warn().Err(releaseErr).Msg("failed to release migrations lock")
			}
		}()
	}

	plan, err = m.Plan(ctx, target, removeUnknown)
	if err != nil {
		return nil, err
	}

	if plan.IsNoop() {
		logger.Info().Str("current", string(plan.Current)).Msg("nothing to migrate")
		return plan, nil
	}

	logger.Info().
		Str("current", string(plan.Current)).
		Str("target", string(plan.Target)).
		Stringer("direction", plan.Direction).
		Int("steps", len(plan.Steps)).
		Int("remove", len(plan.Remove)).
		Msg("migrating")

	started := time.Now()
	if err := m.execute(ctx, logger, plan); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		return nil, err
	}

	logger.Info().Dur("took", time.Since(started)).Msg("migration complete")

	return plan, nil
}

// ---

func (m *migratorImpl) execute(ctx context.Context, logger zerolog.Logger, plan *Plan) (err error) {
	factories := make([]migration.Factory, len(plan.Steps))
	for i, step := range plan.Steps {
		factory, err := m.source.Load(step.Version)
		if err != nil {
			return fmt.Errorf("failed to load migration %s: %w", step.Version, err)
		}
		factories[i] = factory
	}

	tx, err := m.driver.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}

		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rollbackErr))
		}
	}()

	for i, step := range plan.Steps {
		stepLogger := logger.With().Str("version", string(step.Version)).Stringer("direction", step.Direction).Logger()
		stepLogger.Debug().Msg("applying migration")

		unit := factories[i](tx)
		if err := step.Direction.Apply(ctx, unit); err != nil {
			return &MigrationError{Version: step.Version, Direction: step.Direction, Err: err}
		}

		stepLogger.Info().Msg("migration applied")
	}

	if err := tx.Record(ctx, plan.Add, plan.Remove); err != nil {
		return &MigrationError{Err: fmt.Errorf("failed to record applied versions: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return &MigrationError{Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	committed = true

	return nil
}
