package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
	"github.com/nhle/studytrack/internal/views"
)

const recentTrendSize = 7

var bandTitles = map[views.Band]string{
	views.BandTodo:       "To Do",
	views.BandInProgress: "In Progress",
	views.BandDone:       "Done",
}

func boardCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show tasks in todo, in progress and done columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Tracker.Tasks(ctx)
				if err != nil {
					return err
				}
				board := views.Board(tasks)
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), board)
				}

				w := cmd.OutOrStdout()
				now := time.Now()
				for _, col := range board {
					title := fmt.Sprintf("%s (%d)", bandTitles[col.Band], len(col.Tasks))
					fmt.Fprintln(w, theme.BandStyle(col.Band).Bold(true).Render(title))
					printTasks(w, col.Tasks, now, a.Location)
					fmt.Fprintln(w)
				}
				return nil
			})
		},
	}
}

func timelineCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "Show dated tasks grouped by due day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Tracker.Tasks(ctx)
				if err != nil {
					return err
				}
				now := time.Now()
				groups := views.Timeline(tasks, now, a.Location)
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), groups)
				}
				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), theme.HelpStyle.Render("No tasks with a due date."))
					return nil
				}

				w := cmd.OutOrStdout()
				for _, grp := range groups {
					header := theme.HeaderStyle
					switch {
					case grp.Today:
						header = theme.TodayStyle
					case grp.Past:
						header = theme.OverdueStyle
					}
					fmt.Fprintln(w, header.Render(grp.Date))
					printTasks(w, grp.Tasks, now, a.Location)
				}
				return nil
			})
		},
	}
}

func calendarCmd(g *globals) *cobra.Command {
	var date, month string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show tasks by due day, for one day or one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Tracker.Tasks(ctx)
				if err != nil {
					return err
				}

				var groups []views.DayGroup
				switch {
				case date != "":
					day, err := model.ParseDate(date, a.Location)
					if err != nil {
						return err
					}
					groups = []views.DayGroup{{
						Date:  views.DayKey(*day, a.Location),
						Tasks: views.TasksOn(tasks, *day, a.Location),
					}}
				case month != "":
					day, err := model.ParseDate(month, a.Location)
					if err != nil {
						return err
					}
					groups = views.Month(tasks, *day, a.Location)
				default:
					groups = views.Month(tasks, time.Now().In(a.Location), a.Location)
				}

				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), groups)
				}
				printDays(cmd.OutOrStdout(), groups, a.Location)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "a single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&month, "month", "", "any day of the month to show (YYYY-MM-DD); defaults to this month")
	cmd.MarkFlagsMutuallyExclusive("date", "month")
	return cmd
}

func printDays(w io.Writer, groups []views.DayGroup, loc *time.Location) {
	now := time.Now()
	today := views.DayKey(now, loc)
	for _, grp := range groups {
		header := theme.HeaderStyle
		if grp.Date == today {
			header = theme.TodayStyle
		}
		fmt.Fprintln(w, header.Render(grp.Date))
		printTasks(w, grp.Tasks, now, loc)
	}
}

func statsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Tracker.Tasks(ctx)
				if err != nil {
					return err
				}
				summary := views.Summarize(tasks)
				averages := views.AverageProgressByCategory(tasks)
				categories := views.CategoryBreakdown(tasks)
				recent := views.RecentTrend(tasks, recentTrendSize)

				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"summary":           summary,
						"averageByCategory": averages,
						"categories":        categories,
						"recent":            recent,
					})
				}

				w := cmd.OutOrStdout()
				fmt.Fprintln(w, theme.HeaderStyle.Render("Overview"))
				fmt.Fprintf(w, "  Total %d   Completed %d   In progress %d   Not started %d\n",
					summary.Total, summary.Completed, summary.InProgress, summary.NotStarted)
				fmt.Fprintf(w, "  Average %s   Time spent %s\n\n",
					theme.ProgressBar(summary.AverageProgress, 0), formatDuration(summary.TotalTimeSpent))

				fmt.Fprintln(w, theme.HeaderStyle.Render("By category"))
				for _, cc := range categories {
					fmt.Fprintf(w, "  %s %d/%d done  %s\n",
						theme.CategoryStyle(cc.Category).Render(cc.Category.Label()),
						cc.Completed, cc.Total, theme.ProgressBar(averages[cc.Category], 0))
				}

				fmt.Fprintln(w)
				fmt.Fprintln(w, theme.HeaderStyle.Render("Recent"))
				printTasks(w, recent, time.Now(), a.Location)
				return nil
			})
		},
	}
}
