package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelierlabs/folio/internal/app"
	"github.com/atelierlabs/folio/internal/config"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the cache snapshot once and exit",
		Long: `Scrapes the origin, writes all cache encodings, and exits.
Suitable for cron-style rebuilds alongside or instead of the server's
TTL-driven refreshes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck
			return a.RefreshOnce(cmd.Context())
		},
	}
}
