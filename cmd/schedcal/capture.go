package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"schedcal/internal/capture"
	appLog "schedcal/internal/log"
)

func newCaptureCmd(g *globals) *cobra.Command {
	var url, out string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the HTML calendar with headless Chromium",
		Long: `capture loads the /calendar page of a running "schedcal serve" in headless
Chromium, waits until the page has measured its grid and placed its cards,
and writes a PNG screenshot.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if url == "" {
				url = "http://" + g.cfg.Listen + "/calendar"
			}
			opts := capture.Options{
				URL:        url,
				OutputPath: out,
				Width:      g.cfg.Capture.Width,
				Height:     g.cfg.Capture.Height,
				Timeout:    time.Duration(g.cfg.Capture.TimeoutSec) * time.Second,
			}
			if ba := g.cfg.BasicAuth; ba != nil {
				opts.Username, opts.Password = ba.Username, ba.Password
			}
			if err := capture.CalendarPNG(cmd.Context(), opts); err != nil {
				appLog.Error("capture failed", err, "url", url)
				return err
			}
			appLog.Info("captured calendar", "out", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Calendar page URL (default http://<listen>/calendar)")
	cmd.Flags().StringVar(&out, "out", "", "Output PNG path")
	return cmd
}
