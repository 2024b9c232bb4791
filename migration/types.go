package migration

import (
	"context"
	"errors"
	"fmt"
)

type Direction rune

const (
	Down Direction = 'd'
	Up   Direction = 'u'
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Apply invokes the method of m that matches the direction.
func (d Direction) Apply(ctx context.Context, m Migration) error {
	switch d {
	case Up:
		return m.Up(ctx)
	case Down:
		return m.Down(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDirection, rune(d))
	}
}

// ---

// Migration is a single schema change unit. Implementations are built by a Factory
// against the connection of the running transaction.
type Migration interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

type Factory func(conn Conn) Migration

// ---

// Conn is the capability a migration unit receives. Exec runs one parameterized statement,
// ExecScript runs a raw script that may hold several statements.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	ExecScript(ctx context.Context, script string) error
}

// NoScripts is embedded by connections that can only run parameterized statements.
type NoScripts struct{}

func (NoScripts) ExecScript(context.Context, string) error {
	return ErrUnsupportedOperation
}

// ---

var (
	ErrUnsupportedOperation = errors.New("operation is not supported by this connection")
	ErrInvalidDirection     = errors.New("invalid migration direction")
)
