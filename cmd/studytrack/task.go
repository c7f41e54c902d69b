package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
	"github.com/nhle/studytrack/internal/tracker"
	"github.com/nhle/studytrack/internal/views"
)

func taskCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, list and update tasks",
	}

	cmd.AddCommand(taskAddCmd(g))
	cmd.AddCommand(taskListCmd(g))
	cmd.AddCommand(taskShowCmd(g))
	cmd.AddCommand(taskEditCmd(g))
	cmd.AddCommand(taskProgressCmd(g))
	cmd.AddCommand(taskDoneCmd(g))
	cmd.AddCommand(taskMoveCmd(g))
	cmd.AddCommand(taskRemoveCmd(g))
	cmd.AddCommand(taskTagCmd(g))
	cmd.AddCommand(tagsCmd(g))
	cmd.AddCommand(subtaskCmd(g))
	cmd.AddCommand(timerCmd(g))
	cmd.AddCommand(historyCmd(g))

	return cmd
}

// taskFlags are the editable task fields shared by add and edit.
type taskFlags struct {
	description string
	category    string
	priority    string
	progress    int
	due         string
	estimate    float64
	notes       string
	recurring   string
	until       string
	tags        []string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&f.category, "category", "c", string(model.CategoryHomework), "homework, revision, projects or other")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", string(model.PriorityMedium), "low, medium or high")
	cmd.Flags().IntVar(&f.progress, "progress", 0, "progress 0-100")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&f.estimate, "estimate", 0, "estimated hours")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&f.recurring, "repeat", string(model.RecurringNone), "none, daily, weekly or monthly")
	cmd.Flags().StringVar(&f.until, "until", "", "last date of a repeating task (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag id (repeatable)")
}

func taskAddCmd(g *globals) *cobra.Command {
	var f taskFlags

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				in := tracker.TaskInput{
					Title:         args[0],
					Description:   f.description,
					Category:      model.Category(f.category),
					Priority:      model.Priority(f.priority),
					Progress:      f.progress,
					Notes:         f.notes,
					RecurringType: model.RecurringType(f.recurring),
					TagIDs:        f.tags,
				}
				var err error
				if in.DueDate, err = model.ParseDate(f.due, a.Location); err != nil {
					return err
				}
				if in.RecurringEndDate, err = model.ParseDate(f.until, a.Location); err != nil {
					return err
				}
				if cmd.Flags().Changed("estimate") {
					in.EstimatedTime = &f.estimate
				}

				task, err := a.Tracker.CreateTask(ctx, in)
				if err != nil {
					return err
				}
				return g.showTask(cmd, a, task)
			})
		},
	}

	f.register(cmd)
	return cmd
}

func (g *globals) showTask(cmd *cobra.Command, a *app.App, task model.Task) error {
	if g.jsonOut {
		return printJSON(cmd.OutOrStdout(), task)
	}
	fmt.Fprintln(cmd.OutOrStdout(), taskLine(task, time.Now(), a.Location))
	return nil
}

func taskListCmd(g *globals) *cobra.Command {
	var crit struct {
		category string
		status   string
		tag      string
		query    string
	}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := views.ParseStatus(crit.status)
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Tracker.Tasks(ctx)
				if err != nil {
					return err
				}
				tasks = views.Filter(tasks, views.Criteria{
					Category: crit.category,
					Status:   status,
					TagID:    crit.tag,
					Query:    crit.query,
				})
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), tasks)
				}
				printTasks(cmd.OutOrStdout(), tasks, time.Now(), a.Location)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&crit.category, "category", "c", views.CategoryAll, "category or all")
	cmd.Flags().StringVarP(&crit.status, "status", "s", string(views.StatusAll), "all, completed or incomplete")
	cmd.Flags().StringVar(&crit.tag, "tag", "", "tag id")
	cmd.Flags().StringVarP(&crit.query, "query", "q", "", "text in title or description")
	return cmd
}

func taskShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a task in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tracker.Task(ctx, args[0])
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), task)
				}
				printTask(cmd.OutOrStdout(), task, time.Now(), a.Location)
				return nil
			})
		},
	}
}

func taskEditCmd(g *globals) *cobra.Command {
	var (
		f     taskFlags
		title string
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the given fields of a task",
		Long: `Change the given fields of a task. Fields without a flag are kept.
An empty --due or --until clears the date; --estimate 0 clears the estimate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				patch, err := f.patch(cmd, title, a.Location)
				if err != nil {
					return err
				}
				task, err := a.Tracker.UpdateTask(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return g.showTask(cmd, a, task)
			})
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&title, "title", "t", "", "title")
	return cmd
}

// patch builds a TaskPatch from the flags that were set.
func (f *taskFlags) patch(cmd *cobra.Command, title string, loc *time.Location) (tracker.TaskPatch, error) {
	var p tracker.TaskPatch
	changed := cmd.Flags().Changed

	if changed("title") {
		p.Title = &title
	}
	if changed("desc") {
		p.Description = &f.description
	}
	if changed("category") {
		c := model.Category(f.category)
		p.Category = &c
	}
	if changed("priority") {
		pr := model.Priority(f.priority)
		p.Priority = &pr
	}
	if changed("progress") {
		p.Progress = &f.progress
	}
	if changed("notes") {
		p.Notes = &f.notes
	}
	if changed("repeat") {
		r := model.RecurringType(f.recurring)
		p.RecurringType = &r
	}
	if changed("tag") {
		p.TagIDs = &f.tags
	}
	if changed("estimate") {
		if f.estimate == 0 {
			p.ClearEstimate = true
		} else {
			p.EstimatedTime = &f.estimate
		}
	}
	if changed("due") {
		due, err := model.ParseDate(f.due, loc)
		if err != nil {
			return tracker.TaskPatch{}, err
		}
		p.DueDate, p.ClearDueDate = due, due == nil
	}
	if changed("until") {
		until, err := model.ParseDate(f.until, loc)
		if err != nil {
			return tracker.TaskPatch{}, err
		}
		p.RecurringEndDate, p.ClearRecurringEnd = until, until == nil
	}
	return p, nil
}

func taskProgressCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "progress ID PERCENT",
		Short: "Set a task's progress; 100 completes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			progress, err := strconv.Atoi(args[1])
			if err != nil {
				return &model.ValidationError{Field: "progress", Message: "must be a whole number"}
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tracker.SetProgress(ctx, args[0], progress)
				if err != nil {
					return err
				}
				return g.showTask(cmd, a, task)
			})
		},
	}
}

func taskDoneCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tracker.ToggleComplete(ctx, args[0])
				if err != nil {
					return err
				}
				return g.showTask(cmd, a, task)
			})
		},
	}
}

func taskMoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID BAND",
		Short: "Move a task to the todo, inProgress or done band",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			band, err := views.ParseBand(args[1])
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tracker.MoveToBand(ctx, args[0], band)
				if err != nil {
					return err
				}
				return g.showTask(cmd, a, task)
			})
		},
	}
}

func taskRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Tracker.DeleteTask(ctx, args[0])
			})
		},
	}
}

func taskTagCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tag ID [TAG_ID...]",
		Short: "Replace a task's tags; no tag ids removes them all",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tracker.SetTaskTags(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				return g.showTask(cmd, a, task)
			})
		},
	}
}

func tagsCmd(g *globals) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "tags [NEW_NAME]",
		Short: "List tags, or create one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(args) == 1 {
					if _, err := a.Tracker.CreateTag(ctx, args[0], color); err != nil {
						return err
					}
				}
				tags, err := a.Tracker.Tags(ctx)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), tags)
				}
				for _, t := range tags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", theme.HelpStyle.Render(t.ID), theme.TagStyle(t).Render("#"+t.Name))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", tracker.DefaultTagColor, "color of a new tag")
	return cmd
}

func subtaskCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Manage a task's checklist",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add TASK_ID TITLE",
		Short: "Append a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				sub, err := a.Tracker.AddSubtask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sub.ID)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "done SUBTASK_ID",
		Short: "Toggle a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				_, err := a.Tracker.ToggleSubtask(ctx, args[0])
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename SUBTASK_ID TITLE",
		Short: "Rename a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				_, err := a.Tracker.RenameSubtask(ctx, args[0], args[1])
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm SUBTASK_ID",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Tracker.DeleteSubtask(ctx, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "order TASK_ID SUBTASK_ID...",
		Short: "Reorder a task's subtasks",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tracker.ReorderSubtasks(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), task, time.Now(), a.Location)
				return nil
			})
		},
	})

	return cmd
}

func timerCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Record study time on a task",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start TASK_ID",
		Short: "Start the timer; a running timer is left as is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session, err := a.Tracker.StartTimer(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Timer running since %s\n",
					session.StartTime.In(a.Location).Format(time.Kitchen))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop TASK_ID",
		Short: "Stop the running timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session, err := a.Tracker.StopTaskTimer(ctx, args[0])
				if err != nil {
					return err
				}
				if session == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No timer running.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s\n", formatDuration(*session.DurationSeconds))
				return nil
			})
		},
	})

	return cmd
}

func historyCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [TITLE]",
		Short: "Show completion history, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			if len(args) == 1 {
				title = args[0]
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				records, err := a.Tracker.History(ctx, title, limit)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), records)
				}
				for _, r := range records {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
						r.CompletedAt.In(a.Location).Format(model.DateLayout),
						r.TaskTitle,
						theme.HelpStyle.Render(formatDuration(r.ActualTime)))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records")
	return cmd
}
