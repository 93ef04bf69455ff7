package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupwatch/internal/ado"
	"github.com/steveyegge/dupwatch/internal/config"
	"github.com/steveyegge/dupwatch/internal/fetch"
	"github.com/steveyegge/dupwatch/internal/logger"
	"github.com/steveyegge/dupwatch/internal/settings"
)

var (
	configPath string
	logLevel   string
	logJSON    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dupwatch",
	Short: "Flag work items that duplicate an open item",
	Long: `dupwatch compares a work item's title and description against the open
items of an Azure DevOps project and reports near-duplicates.

Configuration is read from .dupwatch/config.yaml (see "dupwatch init"),
DUPWATCH_* environment variables and a .env file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // .env is optional

		logger.Setup(logLevel, logJSON)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.FromContext(cmd.Context()).Debug("Loaded configuration", "config", cfg.String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
}

func main() {
	os.Exit(exitCode(rootCmd.ExecuteContext(context.Background()), os.Stderr))
}

// exitCode reports err on w and returns the process exit status.
func exitCode(err error, w io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDuplicateFound):
		return 3
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
}

// newClient builds the REST client with the retrying transport installed.
func newClient(ctx context.Context) (*ado.Client, error) {
	if err := cfg.RequireRemote(); err != nil {
		return nil, err
	}

	fc := cfg.FetchConfig()
	log := logger.FromContext(ctx)
	fc.OnRetry = func(attempt int, delay time.Duration, cause error) {
		log.Warn("Retrying request", "attempt", attempt+1, "delay", delay, "cause", cause)
	}
	transport, err := fetch.NewTransport(nil, fc)
	if err != nil {
		return nil, fmt.Errorf("invalid fetch config: %w", err)
	}

	token := cfg.Token()
	if token == "" {
		log.Warn("No access token found, requests will be anonymous", "env", cfg.TokenEnv)
	}
	return ado.NewClient(
		ado.StaticLocation{URL: cfg.Organization, Project: cfg.Project},
		ado.StaticToken(token),
		ado.Options{Transport: transport, Timeout: cfg.Timeout},
	)
}

// openSettings opens the settings database named by the configuration.
func openSettings() (*settings.SQLiteStore, error) {
	store, err := settings.NewSQLiteStore(cfg.SettingsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	return store, nil
}
