package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	appLog "schedcal/internal/log"
	"schedcal/internal/tui"
)

func newTUICmd(g *globals) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// Log lines would corrupt the screen.
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			appLog.SetOutput(out)
			defer appLog.SetOutput(os.Stderr)

			rt, err := g.runtime()
			if err != nil {
				return err
			}
			if err := rt.Start(ctx); err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("terminal init: %w", err)
			}
			defer screen.Fini()

			return tui.New(screen, rt).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the terminal UI runs")
	return cmd
}
