package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reclamation pass and exit",
		Long: `Return every hold whose deadline has passed and promote the next eligible
waiting user, once. Useful from cron when the API runs without its sweeper.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.close()

			report, err := e.services(nil).sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned=%d reclaimed=%d promoted=%d stale=%d failed=%d\n",
				report.Scanned, report.Reclaimed, report.Promoted, report.Stale, len(report.Failures))
			for _, f := range report.Failures {
				fmt.Fprintf(out, "  %s: %v\n", f.ItemID, f.Err)
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d items could not be reclaimed", len(report.Failures))
			}
			return nil
		},
	}
}
