// Command studytrack tracks study tasks, notes and time from the terminal
// and serves them over a JSON HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/app"
	"github.com/nhle/studytrack/internal/credential"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
)

var Version = "dev"

// globals are the root flags shared by every command.
type globals struct {
	configPath string
	verbose    bool
	jsonOut    bool
	logger     *slog.Logger
}

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "studytrack",
		Short:         "Track homework, revision and study time",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			g.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(g.logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", model.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(initCmd(g))
	rootCmd.AddCommand(serveCmd(g))
	rootCmd.AddCommand(taskCmd(g))
	rootCmd.AddCommand(noteCmd(g))
	rootCmd.AddCommand(boardCmd(g))
	rootCmd.AddCommand(timelineCmd(g))
	rootCmd.AddCommand(calendarCmd(g))
	rootCmd.AddCommand(statsCmd(g))
	rootCmd.AddCommand(exportCmd(g))
	rootCmd.AddCommand(importCmd(g))
	rootCmd.AddCommand(summaryCmd(g))
	rootCmd.AddCommand(keyCmd(g))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

// openVault opens the keyring. Failure is logged and leaves only the
// environment as a key source.
func (g *globals) openVault() *credential.Vault {
	vault, err := credential.Open("")
	if err != nil {
		g.logger.Debug("keyring unavailable", "error", err)
		return nil
	}
	return vault
}

// withApp loads the config, opens the app, runs fn and closes the app.
func (g *globals) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := model.LoadConfig(g.configPath)
	if err != nil {
		return err
	}
	a, err := app.Open(cfg, app.Options{Vault: g.openVault(), Logger: g.logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			g.logger.Warn("closing app failed", "error", err)
		}
	}()
	return fn(cmd.Context(), a)
}
