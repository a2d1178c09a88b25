package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schedcal/internal/app"
	"schedcal/internal/calendar"
	"schedcal/internal/config"
	appLog "schedcal/internal/log"
)

// globals holds the persistent flags and what PersistentPreRunE loaded.
type globals struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "schedcal",
		Short: "Week/day/month scheduling calendar with drag-to-reschedule",
		Long: `schedcal shows appointments from ICS feeds in a day, week or month view
and lets you move them by dragging. It runs as:
  - an HTTP host with an HTML calendar and a JSON API (serve)
  - a terminal calendar (tui)
  - one-shot renderers (render, capture, layout)`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				appLog.Error("failed to load config", err, "config_path", g.configPath)
				return err
			}
			if g.logLevel != "" {
				cfg.LogLevel = g.logLevel
			}
			appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
			g.cfg = cfg
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "schedcal version %s\n" .Version}}`)
	root.PersistentFlags().StringVar(&g.configPath, "config", "./schedcal.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(g),
		newTUICmd(g),
		newRenderCmd(g),
		newCaptureCmd(g),
		newLayoutCmd(g),
	)
	return root
}

func (g *globals) runtime() (*app.Runtime, error) {
	return app.New(g.cfg)
}

// loadRuntime builds the runtime and loads the feeds once.
func (g *globals) loadRuntime(ctx context.Context) (*app.Runtime, error) {
	rt, err := g.runtime()
	if err != nil {
		return nil, err
	}
	if err := rt.Refresh(ctx); err != nil {
		// Partial loads are still usable.
		appLog.Warn("feed refresh incomplete", "err", err.Error())
	}
	return rt, nil
}

// anchorOption parses --date (YYYY-MM-DD) in the display location.
func anchorOption(date string, loc *time.Location) ([]calendar.Option, error) {
	if date == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return nil, fmt.Errorf("--date: %w", err)
	}
	return []calendar.Option{calendar.WithStateOptions(calendar.WithAnchor(t))}, nil
}
