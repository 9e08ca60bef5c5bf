package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omnitrack/omnitrack/internal/advisor"
	"github.com/omnitrack/omnitrack/internal/output"
	"github.com/omnitrack/omnitrack/internal/seed"
	"github.com/omnitrack/omnitrack/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "omnitrack",
	Short: "OmniTrack - file, triage, and resolve issues across projects",
	Long: `omnitrack is an issue tracker for small teams.
Issues are grouped into projects, carry a priority and severity, and move
through a flat status lifecycle. Data lives in process memory for the
lifetime of a run, seeded from a YAML dataset; use 'serve' or 'mcp' for a
long-lived session.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/omnitrack/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "omnitrack")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("OMNITRACK")
	viper.AutomaticEnv()

	viper.SetDefault("db_dsn", store.MemoryDSN)
	viper.SetDefault("seed_file", "")
	viper.SetDefault("acting_user", "u2")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// getStore returns the shared store, initializing and seeding it on
// first call. The default DSN is in-memory, so every process run starts
// a fresh session from the seed data.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	s, err := store.NewSQLiteStore(viper.GetString("db_dsn"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	// A file DSN keeps its data across runs; only seed an empty database.
	seeded, err := s.Seeded(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if seeded {
		dataStore = s
		return dataStore, nil
	}

	var f *seed.File
	if path := viper.GetString("seed_file"); path != "" {
		f, err = seed.LoadPath(path)
	} else {
		f, err = seed.Default()
	}
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	users, projects, issues, err := f.Build()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("build seed data: %w", err)
	}
	if err := s.Seed(ctx, users, projects, issues); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getAdvisor returns an advisory client, or nil when no API key is
// configured. Callers must tolerate nil: advisory output is optional.
func getAdvisor() *advisor.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return advisor.NewClient(apiKey, viper.GetString("anthropic.model"))
}

// actingUser resolves the user id performing CLI write operations.
func actingUser() string {
	return viper.GetString("acting_user")
}
