package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schedcal/internal/calendar"
	appLog "schedcal/internal/log"
	"schedcal/internal/raster"
)

func newRenderCmd(g *globals) *cobra.Command {
	var (
		out   string
		width float64
		date  string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the week as a PNG without a browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if width <= 0 {
				return errors.New("--width must be positive")
			}
			rt, err := g.loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := anchorOption(date, rt.Location)
			if err != nil {
				return err
			}
			c := rt.NewCalendar(calendar.Hooks{}, opts...)
			c.Layout(width)
			l := calendar.ComposeWeek(c.State(), c.Events(), c.Metrics(), c.Theme())

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if err := raster.EncodePNG(f, &l, raster.Options{}); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			appLog.Info("rendered week", "out", out, "label", c.State().Label(), "cards", len(l.Cards))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output PNG path")
	cmd.Flags().Float64Var(&width, "width", 840, "Grid width in pixels")
	cmd.Flags().StringVar(&date, "date", "", "Any day of the week to render (YYYY-MM-DD); default today")
	return cmd
}
