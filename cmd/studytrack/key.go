package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/studytrack/internal/credential"
)

func keyCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the AI gateway API key in the system keyring",
		Long: `Manage the AI gateway API key in the system keyring.

The ` + credential.EnvAIKey + ` environment variable, when set, takes precedence
over the stored key.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [KEY]",
		Short: "Store the API key; reads one line from stdin when KEY is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := credential.Open("")
			if err != nil {
				return err
			}

			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading key: %w", err)
				}
				value = strings.TrimSpace(line)
			}

			if err := vault.Set(credential.AIKey, value); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key stored.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := credential.Open("")
			if err != nil {
				return err
			}
			if err := vault.Delete(credential.AIKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report where the API key comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if strings.TrimSpace(os.Getenv(credential.EnvAIKey)) != "" {
				fmt.Fprintf(w, "API key set from %s.\n", credential.EnvAIKey)
				return nil
			}
			_, err := g.openVault().AIKey()
			switch {
			case errors.Is(err, credential.ErrNotSet):
				fmt.Fprintln(w, "No API key. AI features are disabled.")
			case err != nil:
				return err
			default:
				fmt.Fprintln(w, "API key stored in keyring.")
			}
			return nil
		},
	})

	return cmd
}
