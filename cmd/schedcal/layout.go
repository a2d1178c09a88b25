package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"schedcal/internal/calendar"
	"schedcal/internal/model"
)

func newLayoutCmd(g *globals) *cobra.Command {
	var (
		width float64
		date  string
		view  string
	)
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the composed view as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if width < 0 {
				return errors.New("--width must not be negative")
			}
			rt, err := g.loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := anchorOption(date, rt.Location)
			if err != nil {
				return err
			}
			if view != "" {
				v, err := model.ParseViewMode(view)
				if err != nil {
					return err
				}
				opts = append(opts, calendar.WithStateOptions(calendar.WithView(v)))
			}

			c := rt.NewCalendar(calendar.Hooks{}, opts...)
			c.Layout(width)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c.View())
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "Measured grid width; 0 composes headers and hour rows only")
	cmd.Flags().StringVar(&date, "date", "", "Anchor date (YYYY-MM-DD); default today")
	cmd.Flags().StringVar(&view, "view", "", "day, week or month (default from config)")
	return cmd
}
