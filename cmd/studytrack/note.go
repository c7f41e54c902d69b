package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
	"github.com/nhle/studytrack/internal/tracker"
)

func noteCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Write and search study notes",
	}

	var in struct {
		content string
		folder  string
		task    string
		tags    []string
	}
	add := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a note; #hashtags in the content become tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				input := tracker.NoteInput{
					Title:   args[0],
					Content: in.content,
					Folder:  in.folder,
					Tags:    in.tags,
				}
				if in.task != "" {
					input.TaskID = &in.task
				}
				note, err := a.Tracker.CreateNote(ctx, input)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), note)
				}
				fmt.Fprintln(cmd.OutOrStdout(), note.ID)
				return nil
			})
		},
	}
	add.Flags().StringVarP(&in.content, "content", "m", "", "note body")
	add.Flags().StringVar(&in.folder, "folder", tracker.DefaultFolder, "folder")
	add.Flags().StringVar(&in.task, "task", "", "id of the task the note belongs to")
	add.Flags().StringSliceVar(&in.tags, "tag", nil, "tag (repeatable)")
	cmd.AddCommand(add)

	var folder, query string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notes, most recently updated first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				notes, err := a.Tracker.Notes(ctx, folder, query)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), notes)
				}
				for _, n := range notes {
					printNoteLine(cmd, n)
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&folder, "folder", "", "only this folder")
	list.Flags().StringVarP(&query, "query", "q", "", "text in title, content or tags")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Tracker.Note(ctx, args[0])
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), n)
				}
				printNoteLine(cmd, n)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", n.Content)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Tracker.DeleteNote(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "folders",
		Short: "List note folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				folders, err := a.Tracker.Folders(ctx)
				if err != nil {
					return err
				}
				if g.jsonOut {
					return printJSON(cmd.OutOrStdout(), folders)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(folders, "\n"))
				return nil
			})
		},
	})

	return cmd
}

func printNoteLine(cmd *cobra.Command, n model.Note) {
	tags := make([]string, len(n.Tags))
	for i, t := range n.Tags {
		tags[i] = "#" + t
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s %s\n",
		theme.HelpStyle.Render(shortID(n.ID)),
		theme.HeaderStyle.Render(n.Folder),
		n.Title,
		theme.HelpStyle.Render(strings.Join(tags, " ")))
}
