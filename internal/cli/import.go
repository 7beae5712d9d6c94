package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrlokans/roots/internal/importer"
	"github.com/mrlokans/roots/internal/services"
)

func newImportCmd(e *env) *cobra.Command {
	var dryRun bool
	var fetch bool

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Imports new e-books",
		Long: `Imports a single e-book or every EPUB and MOBI file under a directory.

Each file is filed under <library>/<author>/<title><ext> and its record is
stored in the library. Files are copied unless import.relocate is set.
The library directory itself is never rescanned by import; use update.`,
		Example: `  # Import books from ~/Downloads/
  roots import ~/Downloads/

  # Show where books would go without touching anything
  roots import --dry-run ~/Downloads/

  # Reconcile each book against the catalog while importing
  roots import --fetch ~/Downloads/howards-end.epub`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			source := args[0]
			info, err := os.Stat(source)
			if err != nil {
				return err
			}
			pruneRoot := source
			if !info.IsDir() {
				pruneRoot = filepath.Dir(source)
			}

			paths, err := importer.Discover(source, app.Config.Directory)
			if err != nil {
				return fmt.Errorf("scan %s: %w", source, err)
			}
			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No e-books found in %s\n", source)
				return nil
			}

			imp := app.Config.Import
			if cmd.Flags().Changed("fetch") {
				imp.Fetch = fetch
			}
			lib, err := app.Library(imp, pruneRoot)
			if err != nil {
				return err
			}

			report := lib.Import(cmd.Context(), paths, services.ImportOptions{DryRun: dryRun})
			printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report, dryRun)
			return report.Err()
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show proposed moves without executing them")
	cmd.Flags().BoolVarP(&fetch, "fetch", "f", false, "Reconcile each record against the catalog")

	return cmd
}

func printReport(out, errOut io.Writer, report services.Report, dryRun bool) {
	for _, res := range report.Results {
		printWarnings(errOut, res)
		switch {
		case res.Err != nil:
			fmt.Fprintf(out, "FAIL %s: %v\n", res.Source, res.Err)
		case dryRun:
			fmt.Fprintf(out, "plan %s -> %s\n", res.Source, res.Move.Destination)
		default:
			fmt.Fprintf(out, "ok   %s -> %s\n", res.Source, res.Book.FilePath)
		}
	}
	fmt.Fprintln(out, report.Summary())
}
