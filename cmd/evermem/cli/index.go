package cli

import (
	"github.com/spf13/cobra"

	"github.com/evermem/evermem/core"
	"github.com/evermem/evermem/indexer"
	"github.com/evermem/evermem/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: "Bulk-load a file tree into the search index",
		Long: "Walk the given root, skipping binary and unreadable files, " +
			"and upsert one document per file keyed by content fingerprint. " +
			"Safe to re-run: unchanged content replaces its document.",
		Args: cobra.ExactArgs(1),
		Run:  runIndex,
	}

	cmd.Flags().String("namespace", "docs", "Namespace to index documents under")
	cmd.Flags().Int64("max-file-size", indexer.DefaultMaxFileSize, "Skip files larger than this many bytes")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	logger := core.NewProductionLogger(cfg.Name, core.LoggerOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	index, err := memory.NewSQLiteIndex(memory.SQLiteIndexOptions{
		Path:       cfg.Index.Path,
		Collection: cfg.Index.Collection,
		Logger:     logger,
	})
	if err != nil {
		exitErr("open search index", err)
	}
	defer index.Close()

	namespace, _ := cmd.Flags().GetString("namespace")
	maxSize, _ := cmd.Flags().GetInt64("max-file-size")

	b := indexer.New(index, indexer.Options{
		Namespace:   namespace,
		MaxFileSize: maxSize,
		Logger:      logger,
	})

	if err := b.Run(cmd.Context(), args[0]); err != nil {
		exitErr("index", err)
	}
}
