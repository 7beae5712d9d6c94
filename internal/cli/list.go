package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrlokans/roots/internal/database/books"
	"github.com/mrlokans/roots/internal/entities"
)

type listOptions struct {
	authors bool
	isbn    bool
	table   bool
}

func newListCmd(e *env) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list [query...]",
		Short: "Queries the library",
		Long: `Lists the titles in the library that match every query term.

A term of the form field:value matches books whose field contains value;
any other words must all appear in the title. Run fields for the field
names. Matching ignores case.`,
		Example: `  # All titles by Forster
  roots list author:forster

  # All authors of matching titles
  roots list --author howards end

  # All known titles with ISBNs
  roots list --isbn`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("isbn") {
				opts.isbn = cfg.List.ISBN
			}
			if !cmd.Flags().Changed("table") {
				opts.table = cfg.List.Table
			}

			query, err := books.ParseQuery(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ok, err := e.initialised(cmd)
			if err != nil {
				return err
			}
			if !ok {
				_, err := fmt.Fprintln(out, "No titles to list, is roots initialised?")
				return err
			}

			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			found, err := app.Books.Find(query)
			if err != nil {
				return err
			}
			return printBooks(out, found, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.authors, "author", "a", false, "Show a list of matching authors")
	cmd.Flags().BoolVarP(&opts.isbn, "isbn", "i", false, "Show the ISBN number of each title")
	cmd.Flags().BoolVarP(&opts.table, "table", "t", false, "Print the matches in a table")

	return cmd
}

func printBooks(w io.Writer, found []entities.Book, opts listOptions) error {
	if opts.isbn {
		found = withISBN(found)
	}
	if len(found) == 0 {
		_, err := fmt.Fprintln(w, "No matching titles")
		return err
	}

	if opts.authors {
		for _, a := range distinctAuthors(found) {
			fmt.Fprintln(w, a)
		}
		return nil
	}

	if !opts.table {
		for _, b := range found {
			line := b.Title
			if len(b.Authors) > 0 {
				line += " by " + strings.Join(b.Authors, ", ")
			}
			if opts.isbn {
				line += " [" + b.ISBN + "]"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "TITLE\tAUTHORS\tYEAR\tFORMAT"
	if opts.isbn {
		header += "\tISBN"
	}
	fmt.Fprintln(tw, header)
	for _, b := range found {
		year := ""
		if y := b.PublicationYear(); y != 0 {
			year = fmt.Sprint(y)
		}
		row := fmt.Sprintf("%s\t%s\t%s\t%s", b.Title, strings.Join(b.Authors, ", "), year, b.Format)
		if opts.isbn {
			row += "\t" + b.ISBN
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func withISBN(found []entities.Book) []entities.Book {
	out := found[:0:0]
	for _, b := range found {
		if b.ISBN != "" {
			out = append(out, b)
		}
	}
	return out
}

func distinctAuthors(found []entities.Book) []string {
	seen := make(map[string]struct{})
	var authors []string
	for _, b := range found {
		for _, a := range b.Authors {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			authors = append(authors, a)
		}
	}
	sort.Strings(authors)
	return authors
}
