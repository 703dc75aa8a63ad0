// Command askdb answers questions about indexed code and SQL by
// routing them to policy-eligible inference backends.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	configfile "github.com/custodia-labs/askdb-core/internal/adapters/driven/config/file"
	embeddingopenai "github.com/custodia-labs/askdb-core/internal/adapters/driven/embedding/openaicompat"
	llmopenai "github.com/custodia-labs/askdb-core/internal/adapters/driven/llm/openaicompat"
	"github.com/custodia-labs/askdb-core/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/askdb-core/internal/adapters/driving/cli"
	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
	"github.com/custodia-labs/askdb-core/internal/core/services"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("ASKDB_CONFIG")
	if configPath == "" {
		var err error
		configPath, err = configfile.DefaultConfigPath()
		if err != nil {
			return err
		}
	}
	cfg, err := configfile.LoadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	var embedder driven.EmbeddingService
	if cfg.Embedding.BaseURL != "" {
		embedder, err = embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Timeout:    cfg.Embedding.EmbeddingTimeout(),
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return err
		}
		defer embedder.Close()
	} else {
		logger.Debug("No embedding provider configured, keyword retrieval only")
	}

	var vectors driven.MutableVectorIndex
	var vectorIndex driven.VectorIndex
	if embedder != nil {
		vectors = store.VectorIndex()
		vectorIndex = vectors
	}

	var opts []services.RetrievalOption
	if cfg.Cache.Size > 0 {
		opts = append(opts, services.WithQueryCache(cfg.Cache.Size, cfg.Cache.TTL()))
	}
	retrieval := services.NewRetrievalService(
		store.ChunkStore(), store.DependencyGraph(), vectorIndex, embedder, opts...)

	var registrySource driven.RegistrySource = configfile.NewRegistrySource(cfg.RegistryPath)
	registryCfg, err := registrySource.Load(context.Background())
	if err != nil {
		return err
	}
	registry, err := services.NewBackendRegistry(*registryCfg)
	if err != nil {
		return err
	}

	if cfg.WatchRegistry {
		watcher, err := configfile.NewWatcher(cfg.RegistryPath, func(c *domain.RegistryConfig) {
			if err := registry.Reload(*c); err != nil {
				logger.Warn("Registry reload rejected: %v", err)
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Registry watcher stopped: %v", err)
			}
		}()
	}

	conversations := services.NewConversationService(store.ConversationStore())
	client := llmopenai.NewClient(llmopenai.Config{
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
		Burst:             cfg.Client.Burst,
	})
	query := services.NewQueryService(retrieval, registry, conversations, client)

	cli.SetServices(cli.Services{
		Search:        retrieval,
		Query:         query,
		Registry:      registry,
		Conversations: conversations,
		Chunks:        store,
		Vectors:       vectors,
		Embedder:      embedder,
	})

	return cli.Execute()
}
