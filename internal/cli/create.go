package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/root-talis/tsmig/source/files"
)

func newCreateCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new migration named after the current UTC time",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			version, created, err := files.Create(o.config.Dir, o.config.Prefix, time.Now())
			if err != nil {
				return err
			}

			o.logger.Debug().Str("version", string(version)).Strs("files", created).Msg("migration created")

			o.Printf("New migration file created.\n")
			for _, path := range created {
				o.Printf("  %s\n", path)
			}

			return nil
		},
	}
}
