package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/roots/internal/entities"
)

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "Shows fields that can be used in queries",
		Example: `  roots fields
  roots list author:forster`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range entities.QueryFields {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), f); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
