package main

import (
	"fmt"
	"os"
	"path/filepath"

	"promptlib/internal/config"
	"promptlib/internal/logging"
	"promptlib/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dataDir    string

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "promptlib",
	Short: "promptlib - local prompt library",
	Long: `promptlib manages a local library of reusable prompts backed by SQLite.

Prompts carry tags, a favorite flag, and a running quality score fed by rated
usage logs. Every content change is kept as an immutable version, and the whole
library round-trips through JSON snapshots for backup and transfer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logger.With(zap.String("run_id", uuid.NewString()))

		cfg, err = config.Load(resolveConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}

		if err := logging.Initialize(cfg.DataDir, logging.Settings{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize file logging: %w", err)
		}

		logger.Debug("startup",
			zap.String("data_dir", cfg.DataDir),
			zap.String("database", cfg.DatabasePath()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// resolveConfigPath prefers the explicit flag, then the default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".promptlib", "config.yaml")
}

// openStore opens the library database for a command run.
// The caller closes it.
func openStore() (*store.Store, error) {
	s, err := store.New(cfg.DatabasePath())
	if err != nil {
		logger.Error("failed to open library", zap.Error(err))
		return nil, fmt.Errorf("failed to open library at %s: %w", cfg.DatabasePath(), err)
	}
	return s, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.promptlib/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
