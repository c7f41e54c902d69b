package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/export"
	"github.com/nhle/studytrack/internal/model"
)

func exportCmd(g *globals) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a JSON backup, a CSV of tasks or an archive of completed tasks",
		Long: `Export writes one of three files:

  json     full backup of tasks, notes, tags and time sessions
  csv      one row per task for spreadsheets
  archive  completed tasks only

Use -o - to write to stdout. Without -o the file is named after today's date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				now := time.Now().In(a.Location)

				var buf bytes.Buffer
				switch format {
				case "json":
					backup, err := export.Collect(ctx, a.Tracker, now)
					if err != nil {
						return err
					}
					if err := export.WriteJSON(&buf, backup); err != nil {
						return err
					}
				case "csv":
					tasks, err := a.Tracker.Tasks(ctx)
					if err != nil {
						return err
					}
					if err := export.WriteCSV(&buf, tasks, a.Location); err != nil {
						return err
					}
				case "archive":
					tasks, err := a.Tracker.Tasks(ctx)
					if err != nil {
						return err
					}
					n, err := export.WriteArchive(&buf, tasks)
					if errors.Is(err, export.ErrNothingToArchive) {
						fmt.Fprintln(cmd.ErrOrStderr(), "No completed tasks to archive.")
						return nil
					}
					if err != nil {
						return err
					}
					g.logger.Debug("archived tasks", "count", n)
				default:
					return &model.ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", format)}
				}

				kind := format
				if kind == "json" {
					kind = "backup"
				}
				if output == "" {
					output = export.Filename(kind, now)
				}
				if output == "-" {
					_, err := buf.WriteTo(cmd.OutOrStdout())
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, csv or archive")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or - for stdout")
	return cmd
}

func importCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import the tasks of a JSON backup as new tasks",
		Long: `Import reads a backup written by export and creates each of its tasks
with a fresh id. Notes, tags and sessions in the backup are ignored.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			backup, err := export.ReadBackup(r)
			if err != nil {
				return err
			}

			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Tracker.ImportTasks(ctx, backup.Tasks)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d tasks\n", n, len(backup.Tasks))
				return err
			})
		},
	}
}
