package cli

import (
	"github.com/spf13/cobra"
)

func newServeCmd(e *env) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the library API",
		Long: `Starts the HTTP API on server.host:server.port. When server.inbox is set,
e-books dropped into that directory are imported on server.schedule.`,
		Example: `  # Start server on the configured port
  roots serve

  # Start server on a custom port
  roots serve --port 3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if cmd.Flags().Changed("port") {
				app.Config.Server.Port = port
			}
			return app.Run(cmd.Context(), e.version)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default server.port)")

	return cmd
}
