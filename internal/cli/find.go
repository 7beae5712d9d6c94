package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrlokans/roots/internal/importer"
	"github.com/mrlokans/roots/internal/matcher"
)

func newFindCmd(e *env) *cobra.Command {
	var showScores bool

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Looks up the most recently resolved record in the catalog",
		Long: `Searches the catalog for the record most recently printed by info and
prints the best matching entry. With --show-scores every matching entry is
listed with its tier and score, best first.`,
		Example: `  roots info ~/Downloads/howards-end.epub
  roots find --show-scores`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			record, err := app.Settings.LastResolved()
			if err != nil {
				return err
			}
			if !record.Identifiable() {
				return &matcher.UnidentifiableError{Record: *record}
			}

			infos, err := app.Catalog.Candidates(cmd.Context(), importer.Query(*record))
			if err != nil {
				return err
			}
			ranked, err := matcher.Rank(*record, infos)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(ranked) == 0 {
				_, err := fmt.Fprintf(out, "No match among %d catalog entries\n", len(infos))
				return err
			}
			if showScores {
				return printRanked(out, ranked)
			}
			return writeYAML(out, ranked[0].Info.Book())
		},
	}

	cmd.Flags().BoolVarP(&showScores, "show-scores", "s", false, "List every matching entry with its tier and score")

	return cmd
}

func printRanked(w io.Writer, ranked []matcher.Candidate) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTIER\tSCORE\tTITLE\tAUTHORS\tISBN")
	for i, c := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			i+1, c.Tier, c.Score, c.Info.Title, strings.Join(c.Info.Authors, ", "), c.Info.ISBN())
	}
	return tw.Flush()
}
