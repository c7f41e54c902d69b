package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/model"
)

func initCmd(g *globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(g.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", g.configPath)
			}
			// Settings already in the file or the environment are kept.
			cfg, err := model.LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			if err := model.SaveConfig(g.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", g.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
