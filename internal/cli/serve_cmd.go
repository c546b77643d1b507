package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	opts := app.ServeDefaults

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog and share server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Serve == nil {
				return fmt.Errorf("serve is not available in this build")
			}
			return app.Serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", opts.Addr, "Listen address")
	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", opts.CatalogPath, "Catalog file (YAML or JSON) to import at start-up")
	return cmd
}
