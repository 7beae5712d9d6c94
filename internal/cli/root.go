// Package cli implements the roots command surface.
package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mrlokans/roots/internal/config"
	"github.com/mrlokans/roots/internal/entrypoint"
	"github.com/mrlokans/roots/internal/logging"
)

// env holds what every subcommand shares: the configuration file path
// given on the command line and, once loaded, the configuration itself.
type env struct {
	configPath string
	version    string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the roots command tree.
func NewRootCmd(version string) *cobra.Command {
	e := &env{version: version}

	cmd := &cobra.Command{
		Use:   "roots",
		Short: "roots e-book manager",
		Long: `roots catalogs personal e-book files.

It extracts metadata from EPUB and MOBI files, optionally reconciles it
against Google Books, files each book under <library>/<author>/<title>
and keeps a queryable record of the library.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "Configuration file (default $XDG_CONFIG_HOME/roots/config.yaml)")

	cmd.AddCommand(newConfigCmd(e))
	cmd.AddCommand(newFieldsCmd())
	cmd.AddCommand(newFindCmd(e))
	cmd.AddCommand(newImportCmd(e))
	cmd.AddCommand(newInfoCmd(e))
	cmd.AddCommand(newListCmd(e))
	cmd.AddCommand(newServeCmd(e))
	cmd.AddCommand(newUpdateCmd(e))

	return cmd
}

// config loads the configuration on first use and installs the logger it
// describes.
func (e *env) config(cmd *cobra.Command) (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	e.logger = logging.Setup(cfg.Log, cmd.ErrOrStderr())
	return cfg, nil
}

// open loads the configuration and opens the library.
func (e *env) open(cmd *cobra.Command) (*entrypoint.App, error) {
	cfg, err := e.config(cmd)
	if err != nil {
		return nil, err
	}
	return entrypoint.Open(cfg, e.logger)
}

// initialised reports whether the library database exists. Read-only
// commands use it to avoid creating an empty library.
func (e *env) initialised(cmd *cobra.Command) (bool, error) {
	cfg, err := e.config(cmd)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(cfg.LibraryPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
