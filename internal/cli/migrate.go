package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", e.cfg.Database.Driver)
			return nil
		},
	}
}
