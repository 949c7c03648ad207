package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/killthenoise/killthenoise/internal/app"
	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/prefs"
	"github.com/killthenoise/killthenoise/internal/store"
)

var (
	// CLI flags
	configFlag  string
	tenantFlag  string
	teamFlag    string
	backendFlag string
	dbFlag      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "killthenoise",
		Short: "Terminal dashboard for AI-clustered customer issues",
		Long: `killthenoise is a terminal dashboard over the KillTheNoise backend.

It shows customer issues from Slack, HubSpot, and Jira that the backend
has already clustered and scored, lets you connect those integrations
via OAuth, and creates Jira tickets for issue clusters.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&configFlag, "config", "", "Path to the config file. Defaults to ~/.config/killthenoise/config.yaml.")
	rootCmd.Flags().StringVar(&tenantFlag, "tenant", "", "Tenant UUID. Overrides the configured tenant.")
	rootCmd.Flags().StringVar(&teamFlag, "team", "", "Team scope for the issue list. Overrides the configured team.")
	rootCmd.Flags().StringVar(&backendFlag, "backend", "", "Backend base URL. Overrides the configured URL.")
	rootCmd.Flags().StringVar(&dbFlag, "db", "", "Path to the local cache database.")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath := configFlag
	if cfgPath == "" {
		cfgPath = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if tenantFlag != "" {
		cfg.TenantID = tenantFlag
	}
	if teamFlag != "" {
		cfg.TeamID = teamFlag
	}
	if backendFlag != "" {
		cfg.Backend.BaseURL = backendFlag
	}

	dbPath := dbFlag
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening cache database: %w", err)
	}
	defer s.Close()

	backend, err := prefs.NewFileBackend(prefs.DefaultPrefsPath())
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}
	prefsService := prefs.NewService(backend)

	m := app.New(*cfg, cfgPath, s, prefsService)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}

	return nil
}

// defaultDBPath returns the cache database location under the user's
// config directory.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "killthenoise.db"
	}
	return filepath.Join(home, ".config", "killthenoise", "cache.db")
}
