// Package cli wires the services together behind the meiliwatch command
// tree.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/meiliwatch/meiliwatch/internal/adapters/driven/config/file"
	"github.com/meiliwatch/meiliwatch/internal/adapters/driven/meili"
	"github.com/meiliwatch/meiliwatch/internal/chunker"
	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/core/services"
	"github.com/meiliwatch/meiliwatch/internal/loaders"
	"github.com/meiliwatch/meiliwatch/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Package-level wiring, built once by loadServices. Commands that only print
// static output never touch these.
var (
	cfg            *domain.Config
	store          driven.DocumentStore
	watchService   *services.Watcher
	refreshService *services.Refresher
	queryService   *services.Query
)

var rootCmd = &cobra.Command{
	Use:   "meiliwatch",
	Short: "Keep a Meilisearch instance in sync with a documentation tree",
	Long: `meiliwatch watches a directory tree and mirrors its files into
Meilisearch, one index per top-level folder. It also serves the resulting
indexes to AI assistants over the Model Context Protocol.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file (default ~/.meiliwatch/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadServices loads configuration and builds the full service graph.
// Called by every command that needs more than static output.
func loadServices() error {
	// A .env next to the process is a convenience for local setups; absence
	// is not an error.
	_ = godotenv.Load()

	loaded, err := file.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	store = meili.New(cfg.Store)
	tracker := services.NewTracker(store)
	indexer := services.NewIndexer(cfg, store, loaders.New(cfg), ch, tracker)

	watchService = services.NewWatcher(cfg, indexer)
	refreshService = services.NewRefresher(cfg, store, indexer, tracker)
	queryService = services.NewQuery(cfg, store)

	return nil
}

// checkStore verifies the store is reachable before long-running work.
func checkStore(cmd *cobra.Command) error {
	if err := store.Health(cmd.Context()); err != nil {
		return fmt.Errorf("store %s unreachable: %w", cfg.Store.Host, err)
	}
	return nil
}
