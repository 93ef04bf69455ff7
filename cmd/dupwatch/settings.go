package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupwatch/internal/settings"
)

var settingsScope string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the similarity settings",
	Long: `Commands for the similarity policy stored in the settings database.

Settings:
  SimilarityIndex     Minimum score (0.0-1.0) that marks a duplicate (default 0.8)
  IncludeTitle        Compare titles (default true)
  IncludeDescription  Compare descriptions (default true)
  SameType            Only compare items of the same type (default true)`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active similarity settings",
	Long: `Show the similarity settings. Settings that were never saved are
initialized with their defaults.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSettings()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		policy, err := settings.LoadOrDefault(cmd.Context(), store, scope())
		if err != nil {
			return err
		}
		printPolicy(cmd.OutOrStdout(), scope(), policy)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one similarity setting",
	Long: `Change one similarity setting.

Examples:
  dupwatch settings set SimilarityIndex 0.9
  dupwatch settings set IncludeDescription false
  dupwatch settings set SameType false --scope User`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := settings.ValidateValue(key, value); err != nil {
			return err
		}

		store, err := openSettings()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		stored, err := store.SetValue(cmd.Context(), key, value, scope())
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s (%s scope)\n", green("✓"), key, stored, scope())
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default similarity settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSettings()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		policy := settings.DefaultPolicy()
		if err := settings.Save(cmd.Context(), store, scope(), policy); err != nil {
			return err
		}
		printPolicy(cmd.OutOrStdout(), scope(), policy)
		return nil
	},
}

func init() {
	settingsCmd.PersistentFlags().StringVar(&settingsScope, "scope", "", "Settings scope: Default or User (default from config)")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func scope() settings.Scope {
	if settingsScope != "" {
		return settings.Scope(settingsScope)
	}
	return cfg.Dedup.Scope
}

func printPolicy(w io.Writer, s settings.Scope, p settings.Policy) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "Similarity settings (%s scope)\n\n", cyan(string(s)))
	fmt.Fprintf(w, "  %-20s %v\n", settings.KeySimilarityIndex, p.Threshold)
	fmt.Fprintf(w, "  %-20s %t\n", settings.KeyIncludeTitle, p.IncludeTitle)
	fmt.Fprintf(w, "  %-20s %t\n", settings.KeyIncludeDescription, p.IncludeDescription)
	fmt.Fprintf(w, "  %-20s %t\n", settings.KeySameType, p.SameType)

	if fields := p.Fields(); fields != "" {
		fmt.Fprintf(w, "\n  %s\n", gray("Compares "+fields))
	} else {
		fmt.Fprintf(w, "\n  %s\n", color.YellowString("No field is compared, nothing will be flagged"))
	}
}
