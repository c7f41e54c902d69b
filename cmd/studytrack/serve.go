package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
)

func serveCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and run the weekly summary schedule",
		Long: `Serve the JSON API under /api.

The background refresher keeps the task list current, and the weekly
summary is generated on the configured summary.schedule.

Examples:
  studytrack serve
  studytrack serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if addr != "" {
					a.Config.Server.Addr = addr
				}
				if err := a.Start(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", a.Config.Server.Addr)
				return a.Serve(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
