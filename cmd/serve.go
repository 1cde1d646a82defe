package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelierlabs/folio/internal/app"
	"github.com/atelierlabs/folio/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Starts the API server. Snapshots are served from the cache and
refreshed from the origin according to the configured TTL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
