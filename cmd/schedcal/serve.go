package main

import (
	"github.com/spf13/cobra"

	appLog "schedcal/internal/log"
	"schedcal/internal/web"
)

func newServeCmd(g *globals) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP calendar host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if listen != "" {
				g.cfg.Listen = listen
			}
			rt, err := g.runtime()
			if err != nil {
				return err
			}
			if err := rt.Start(ctx); err != nil {
				return err
			}

			appLog.Info("effective config",
				"listen", g.cfg.Listen,
				"timezone", rt.Location.String(),
				"default_view", g.cfg.DefaultView,
				"refresh", g.cfg.Refresh,
				"sources", len(g.cfg.Sources),
				"enforce_availability", g.cfg.EnforceAvailability,
			)
			return web.NewServer(rt).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
