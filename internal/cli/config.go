package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrlokans/roots/internal/config"
)

func newConfigCmd(e *env) *cobra.Command {
	var showPath bool
	var showDefault bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Shows the configuration",
		Long: `Shows the effective configuration: defaults, overlaid by the configuration
file, overlaid by ROOTS_* environment variables.`,
		Example: `  # Effective configuration
  roots config

  # Where the configuration file is read from
  roots config --path

  # Built-in defaults, a starting point for a configuration file
  roots config --default > ~/.config/roots/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case showPath:
				return printConfigPath(out, e.configPath)
			case showDefault:
				return writeYAML(out, config.Default())
			}

			cfg, err := e.config(cmd)
			if err != nil {
				return err
			}
			return writeYAML(out, cfg)
		},
	}

	cmd.Flags().BoolVarP(&showPath, "path", "p", false, "Display the configuration file path")
	cmd.Flags().BoolVarP(&showDefault, "default", "d", false, "Display configuration defaults")
	cmd.MarkFlagsMutuallyExclusive("path", "default")

	return cmd
}

func printConfigPath(w io.Writer, path string) error {
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			_, err = fmt.Fprintln(w, "Default configuration")
			return err
		}
		return err
	}
	_, err := fmt.Fprintln(w, path)
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
