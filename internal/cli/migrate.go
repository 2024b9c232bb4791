package cli

import (
	"github.com/spf13/cobra"

	"github.com/root-talis/tsmig"
	"github.com/root-talis/tsmig/migration"
)

func newMigrateCommand(o *options) *cobra.Command {
	var (
		removeUnknown bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "migrate [version|empty]",
		Short: "Migrate the database to a version, the last one by default",
		Long: `Migrate the database up or down to the given version.

Without a version the database is migrated to the last known one.
"empty" rolls back every applied migration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the planner reports malformed targets as unknown ones
			target := migration.None
			if len(args) == 1 {
				target = migration.Version(args[0])
			}

			return o.withMigrator(func(migrator tsmig.Migrator) error {
				if dryRun {
					plan, err := migrator.Plan(cmd.Context(), target, removeUnknown)
					if err != nil {
						return err
					}

					printPlan(o.IOStreams, plan)

					return nil
				}

				if _, err := migrator.Migrate(cmd.Context(), target, removeUnknown); err != nil {
					return err
				}

				o.Printf("All migrations implemented.\n")

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&removeUnknown, "remove-unknown", false, "forget applied versions that have no migration")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned steps without running them")

	return cmd
}

func printPlan(s *IOStreams, plan *tsmig.Plan) {
	if plan.IsNoop() {
		s.Printf("Nothing to migrate.\n")
		return
	}

	for _, step := range plan.Steps {
		s.Printf("%-4s %s\n", step.Direction, step.Version)
	}

	for _, version := range plan.Remove {
		if !containsStep(plan.Steps, version) {
			s.Printf("%-4s %s\n", "drop", version)
		}
	}
}

func containsStep(steps []tsmig.Step, version migration.Version) bool {
	for _, step := range steps {
		if step.Version == version {
			return true
		}
	}
	return false
}
