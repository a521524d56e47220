// Package factory wires the store, indexes, indexer, connectors, and
// search engine into a running application.
package factory

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/samueljklee/codescout/internal/analyze"
	"github.com/samueljklee/codescout/internal/config"
	"github.com/samueljklee/codescout/internal/connector"
	"github.com/samueljklee/codescout/internal/embed"
	"github.com/samueljklee/codescout/internal/engine"
	"github.com/samueljklee/codescout/internal/index"
	"github.com/samueljklee/codescout/internal/indexer"
	"github.com/samueljklee/codescout/internal/store"
)

// App is a fully wired search engine over one repository.
type App struct {
	Config  *config.Config
	DB      *store.DB
	Indexes *index.Set
	Manager *indexer.Manager
	Engine  *engine.Engine

	connectors []connector.Connector
}

// Build assembles an App from configuration. The store is opened (and
// created on first run), connectors are constructed but not probed;
// indexing does not start until Manager.Start.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, rebuilt, err := store.Open(ctx, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if rebuilt {
		// The corrupted store was recreated empty; the first scan marks
		// everything pending and rebuilds from source.
		log.Printf("♻️  Index store was corrupted and has been reset")
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		db.Close()
		return nil, err
	}

	connectors, err := buildConnectors(ctx, cfg.Connectors)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := analyze.NewRegistry()
	indexes := index.NewSet()
	manager := indexer.NewManager(db, registry, embedder, indexes, cfg.Root)

	eng := engine.New(db, indexes, embedder, connectors, engine.Options{
		Timeout:    cfg.Search.Timeout,
		MaxResults: cfg.Search.MaxResults,
		MaxDepth:   cfg.Search.MaxDepth,
		CacheTTL:   cfg.Search.CacheTTL,
		CacheSize:  cfg.Search.CacheSize,
	})
	manager.OnMutation(eng.InvalidateCache)

	return &App{
		Config:     cfg,
		DB:         db,
		Indexes:    indexes,
		Manager:    manager,
		Engine:     eng,
		connectors: connectors,
	}, nil
}

// Close stops indexing and releases the store and connectors.
func (a *App) Close() {
	a.Manager.Stop()
	for _, conn := range a.connectors {
		if closer, ok := conn.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Printf("⚠️ Closing connector %s: %v", conn.Name(), err)
			}
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("⚠️ Closing store: %v", err)
	}
}

func buildEmbedder(cfg config.EmbeddingConfig) (embed.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("embedding provider openai requires an API key in %s", cfg.APIKeyEnv)
		}
		return embed.NewOpenAIEmbedder(key, cfg.Model, cfg.Dimension), nil
	case "ollama":
		return embed.NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimension), nil
	case "none":
		return embed.NewNoOpEmbedder(cfg.Dimension), nil
	default:
		return embed.NewHashEmbedder(cfg.Dimension), nil
	}
}

func buildConnectors(ctx context.Context, configs []config.ConnectorConfig) ([]connector.Connector, error) {
	var out []connector.Connector
	for _, cc := range configs {
		switch cc.Type {
		case "github-issues":
			out = append(out, connector.NewGitHubConnector(ctx, cc.Owner, cc.Repo, cc.Token(), connector.KindTickets))
		case "github-reviews":
			out = append(out, connector.NewGitHubConnector(ctx, cc.Owner, cc.Repo, cc.Token(), connector.KindReviews))
		case "chat-archive":
			chat, err := connector.NewChatArchiveConnector(cc.Name, cc.Dir)
			if err != nil {
				return nil, fmt.Errorf("failed to load chat archive %s: %w", cc.Dir, err)
			}
			log.Printf("💬 Chat archive %s: %d messages", cc.Name, chat.MessageCount())
			out = append(out, chat)
		}
	}
	return out, nil
}
