package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/roots/internal/importer"
)

func newInfoCmd(e *env) *cobra.Command {
	var fetch bool

	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Shows the metadata of an e-book",
		Long: `Extracts and normalizes the metadata of a single EPUB or MOBI file and prints
it as YAML. With --fetch the record is reconciled against the catalog first.

The record is remembered as the most recently resolved one, for find.`,
		Example: `  roots info ~/Downloads/howards-end.epub
  roots info --fetch ~/Downloads/howards-end.mobi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			imp := app.Config.Import
			if cmd.Flags().Changed("fetch") {
				imp.Fetch = fetch
			}
			pipeline, err := app.Pipeline(imp)
			if err != nil {
				return err
			}

			res := pipeline.Process(cmd.Context(), args[0])
			if res.Err != nil {
				return res.Err
			}
			printWarnings(cmd.ErrOrStderr(), res)

			if err := writeYAML(cmd.OutOrStdout(), res.Book); err != nil {
				return err
			}

			book := res.Book
			now := time.Now().UTC()
			book.ResolvedAt = &now
			if err := app.Settings.SetLastResolved(book); err != nil {
				return fmt.Errorf("remember record: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&fetch, "fetch", "f", false, "Reconcile the record against the catalog")

	return cmd
}

func printWarnings(w io.Writer, res importer.Result) {
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s: %v\n", res.Source, warn)
	}
}
