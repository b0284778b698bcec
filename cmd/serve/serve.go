// Package serve implements the command that runs the HTTP API.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/hotspot-explorer/internal/api"
	"github.com/tphakala/hotspot-explorer/internal/app"
)

// Command creates the serve command
func Command(src app.Source) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranking queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := src()
			cfg := api.ConfigFromSettings(a.Settings)
			if listen != "" {
				cfg.Listen = listen
			}

			opts := []api.ServerOption{
				api.WithLogger(a.Log),
				api.WithCache(a.Client),
				api.WithVersion(a.Build.GetVersion()),
			}
			if a.Metrics != nil {
				opts = append(opts, api.WithMetrics(a.Metrics))
			}
			if a.History != nil {
				opts = append(opts, api.WithHistory(a.History))
			}

			server, err := api.New(cfg, a.Settings, a.Explorer, opts...)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides server.listen")
	return cmd
}
