package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openballot/ballotdedup/internal/dedup"
	"github.com/openballot/ballotdedup/internal/engine"
	"github.com/openballot/ballotdedup/internal/storage/sqlite"
)

var (
	dbPath     string
	configPath string

	store *sqlite.SQLiteStorage
	eng   *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "ballotdedup",
	Short: "Cross-source ballot measure deduplication",
	Long: `ballotdedup ingests ballot measure records from multiple sources,
detects duplicates at three strictness tiers, and consolidates
cross-source duplicate groups into canonical records.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := dedup.DefaultConfig()
		if configPath != "" {
			var err error
			cfg, err = dedup.LoadConfigFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		}
		cfg, err := dedup.ConfigFromEnv(cfg)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		store, err = sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", dbPath, err)
		}
		eng = engine.New(store, cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func defaultDBPath() string {
	if p := os.Getenv("BALLOT_DEDUP_DB"); p != "" {
		return p
	}
	return filepath.Join(".", "measures.db")
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(),
		"path to the SQLite database (or set BALLOT_DEDUP_DB)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a YAML config file overriding the defaults")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
