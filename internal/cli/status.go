package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/root-talis/tsmig"
	"github.com/root-talis/tsmig/migration"
)

const none = "---"

func newStatusCommand(o *options) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current, last and unknown migration versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withMigrator(func(migrator tsmig.Migrator) error {
				status, err := migrator.Status(cmd.Context())
				if err != nil {
					return err
				}

				printStatus(o.IOStreams, status, full)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "list every known, new, implemented and missed version")

	return cmd
}

func printStatus(s *IOStreams, status *tsmig.Status, full bool) {
	current := one(status.Current)
	if status.IsLast() {
		current += " [LAST]"
	}

	s.Printf("Migrations status\n")
	s.Printf("Current version:      %s\n", current)
	s.Printf("Last version:         %s\n", one(status.Last))

	if full {
		s.Printf("Existed versions:     %s\n", many(status.Existed))
		s.Printf("New versions:         %s\n", many(status.New))
		s.Printf("Implemented versions: %s\n", many(status.Implemented))
		s.Printf("Missed versions:      %s\n", many(status.Missed))
	}

	s.Printf("Unknown versions:     %s\n", many(status.Unknown))
}

func one(version migration.Version) string {
	if version == migration.None {
		return none
	}
	return string(version)
}

func many(versions []migration.Version) string {
	if len(versions) == 0 {
		return none
	}

	parts := make([]string, len(versions))
	for i, version := range versions {
		parts[i] = string(version)
	}

	return strings.Join(parts, ", ")
}
