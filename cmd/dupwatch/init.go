package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupwatch/internal/config"
	"github.com/steveyegge/dupwatch/internal/settings"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and settings database",
	Long: `Create .dupwatch/config.yaml with example values and initialize the
settings database with the default similarity policy.

Edit the organization and project in the generated file, then export the
access token in DUPWATCH_TOKEN (or put it in .env).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteExample(configPath); err != nil {
			return err
		}

		store, err := openSettings()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if _, err := settings.LoadOrDefault(cmd.Context(), store, cfg.Dedup.Scope); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n%s Initialized dupwatch\n\n", green("✓"))
		fmt.Fprintf(out, "  Config:   %s\n", cyan(configPath))
		fmt.Fprintf(out, "  Settings: %s\n", cyan(cfg.SettingsDB))
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
