package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Updates the library",
		Long: `Rescans the library directory, refreshes the stored record of every e-book
found there and forgets records whose file no longer exists. Files are not
moved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			lib, err := app.Library(app.Config.Import, app.Config.Directory)
			if err != nil {
				return err
			}
			report, err := lib.Update(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range report.Results {
				printWarnings(cmd.ErrOrStderr(), res)
				if res.Err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", res.Source, res.Err)
				}
			}
			fmt.Fprintf(out, "Updated %d, removed %d, failed %d\n", report.Updated, report.Removed, report.Failed)
			return nil
		},
	}
}
