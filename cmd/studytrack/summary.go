package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
)

func summaryCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Weekly AI study summaries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate this week's summary, or show it if it already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := a.Weekly.Generate(ctx)
				if err != nil {
					return err
				}
				return g.showSummary(cmd.OutOrStdout(), ws)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show this week's summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ws, err := a.Weekly.Current(ctx)
				if errors.Is(err, model.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), theme.HelpStyle.Render("No summary yet this week. Run: studytrack summary generate"))
					return nil
				}
				if err != nil {
					return err
				}
				return g.showSummary(cmd.OutOrStdout(), *ws)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored summaries, most recent week first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				summaries, err := a.Store.GetWeeklySummaries(ctx)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), summaries)
				}
				for _, ws := range summaries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %d completed  %s\n",
						weekLabel(ws), ws.Insights.TotalCompleted,
						theme.HelpStyle.Render(formatDuration(ws.Insights.TotalTimeSpent)))
				}
				return nil
			})
		},
	})

	return cmd
}

func weekLabel(ws model.WeeklySummary) string {
	return ws.WeekStart.Format(model.DateLayout) + " to " + ws.WeekEnd.Format(model.DateLayout)
}

func (g *globals) showSummary(w io.Writer, ws model.WeeklySummary) error {
	if g.jsonOut {
		return printJSON(w, ws)
	}

	in := ws.Insights
	fmt.Fprintln(w, theme.HeaderStyle.Render("Week of "+weekLabel(ws)))
	fmt.Fprintf(w, "Completed %d   Time %s   Active days %d   Top %s\n\n",
		in.TotalCompleted, formatDuration(in.TotalTimeSpent), in.ProductiveDays,
		theme.CategoryStyle(in.TopCategory).Render(in.TopCategory.Label()))
	fmt.Fprintln(w, theme.PanelStyle.Render(ws.Summary))

	if len(in.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, theme.HeaderStyle.Render("Next week"))
		for _, s := range in.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
	return nil
}
