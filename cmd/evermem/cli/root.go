// Package cli implements the evermem CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evermem/evermem/core"
)

var configFile string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "evermem",
	Short: "Two-tier memory store for AI agents",
	Long: "evermem serves a Redis-backed recency buffer with an optional " +
		"BM25 search index, plus the dedup engine and bulk indexer that " +
		"feed it.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
}

// loadConfig layers defaults, the optional config file, environment, and
// validates the result.
func loadConfig() (*core.Config, error) {
	cfg := core.DefaultConfig()
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
