package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evermem/evermem/core"
	"github.com/evermem/evermem/memory"
	"github.com/evermem/evermem/server"
	"github.com/evermem/evermem/telemetry"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the memory HTTP service",
		Long: "Start the HTTP API over the Redis recency buffer and the " +
			"optional search index. Backends are constructed at startup and " +
			"closed on shutdown.",
		Run: runServe,
	}

	cmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	cmd.Flags().String("redis-url", "", "Redis URL (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.HTTP.Port = port
	}
	if url, _ := cmd.Flags().GetString("redis-url"); url != "" {
		cfg.Redis.URL = url
	}

	logger := core.NewProductionLogger(cfg.Name, core.LoggerOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(cfg.Name, cfg.Telemetry.Endpoint, logger)
		if err != nil {
			exitErr("init telemetry", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	redisClient, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:    cfg.Redis.URL,
		DialTimeout: cfg.Redis.DialTimeout,
		Logger:      logger,
	})
	if err != nil {
		exitErr("connect to Redis", err)
	}
	defer redisClient.Close()

	buffer := memory.NewRedisBuffer(redisClient, memory.RedisBufferOptions{
		KeyPrefix:  cfg.Buffer.KeyPrefix,
		MaxEntries: cfg.Buffer.MaxEntries,
		Logger:     logger,
	})

	var index memory.SearchIndex
	if cfg.Index.Enabled {
		sqliteIndex, err := memory.NewSQLiteIndex(memory.SQLiteIndexOptions{
			Path:       cfg.Index.Path,
			Collection: cfg.Index.Collection,
			Logger:     logger,
		})
		if err != nil {
			exitErr("open search index", err)
		}
		defer sqliteIndex.Close()
		index = sqliteIndex
	}

	store := memory.NewStore(buffer, memory.StoreOptions{
		Index:         index,
		SearchTimeout: cfg.Index.QueryTimeout,
		Logger:        logger,
	})

	srv := server.New(store, cfg.HTTP, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			exitErr("serve", err)
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown failed", map[string]interface{}{
				"error": err,
			})
		}
	}
}
