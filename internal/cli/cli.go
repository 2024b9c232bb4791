// Package cli implements the tsmig command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/root-talis/tsmig"
	"github.com/root-talis/tsmig/internal/config"
	"github.com/root-talis/tsmig/internal/logging"
	"github.com/root-talis/tsmig/migration"
)

const (
	ExitOK                   = 0
	ExitGeneric              = 1
	ExitNoMigrations         = 2
	ExitUnknownTarget        = 3
	ExitUnknownVersions      = 4
	ExitMigrationFailed      = 5
	ExitUnsupportedOperation = 6
)

type IOStreams struct {
	Out    io.Writer
	ErrOut io.Writer
}

func NewDefaultIOStreams() *IOStreams {
	return &IOStreams{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

func (s IOStreams) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// options are shared by all subcommands and filled in before any of them runs.
type options struct {
	*IOStreams

	verbose bool
	config  config.Config
	logger  zerolog.Logger
}

func (o *options) complete(cmd *cobra.Command) error {
	flags := cmd.Flags()

	path, err := flags.GetString(config.FlagConfig)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path, config.DefaultEnvFile)
	if err != nil {
		return err
	}

	if err := cfg.ApplyFlags(flags); err != nil {
		return err
	}

	o.config = cfg
	o.logger = logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Verbose: o.verbose,
		Out:     o.ErrOut,
	})

	return nil
}

// NewRootCommand creates the tsmig command with its subcommands.
func NewRootCommand(streams *IOStreams) *cobra.Command {
	o := &options{IOStreams: streams}

	cmd := &cobra.Command{
		Use:   "tsmig",
		Short: "Timestamp-versioned database migrations",
		Long: `tsmig moves a database to the requested migration version.

Migrations are SQL scripts named <prefix><version>.up.sql and <prefix><version>.down.sql,
where version is a UTC timestamp in the YYYYMMDDHHMMSS format.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.complete(cmd)
		},
	}

	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	config.BindFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log every migration step")

	cmd.AddCommand(
		newCreateCommand(o),
		newMigrateCommand(o),
		newStatusCommand(o),
	)

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, streams *IOStreams, args []string) int {
	cmd := NewRootCommand(streams)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(streams.ErrOut, "Error: %s\n", err.Error())

	return ExitCode(err)
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, tsmig.ErrNoMigrations):
		return ExitNoMigrations
	case errors.Is(err, tsmig.ErrUnknownTarget):
		return ExitUnknownTarget
	case errors.Is(err, tsmig.ErrUnknownVersions):
		return ExitUnknownVersions
	case errors.Is(err, migration.ErrUnsupportedOperation):
		return ExitUnsupportedOperation
	case errors.Is(err, tsmig.ErrMigrationFailed):
		return ExitMigrationFailed
	default:
		return ExitGeneric
	}
}
