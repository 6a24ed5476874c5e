package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/jobassist-backend/internal/clients/pinecone"
	"github.com/yungbote/jobassist-backend/internal/clients/redis"
	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/inference/engine/anthropic"
	"github.com/yungbote/jobassist-backend/internal/inference/engine/mock"
	"github.com/yungbote/jobassist-backend/internal/inference/engine/oaihttp"
	"github.com/yungbote/jobassist-backend/internal/inference/router"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type Clients struct {
	Redis    *goredis.Client
	Pinecone pinecone.Client
	Provider engine.Provider
	Embedder engine.Embedder
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}

	// Pinecone
	if strings.TrimSpace(cfg.Pinecone.APIKey) != "" {
		pc, err := pinecone.New(log, cfg.Pinecone)
		if err != nil {
			return Clients{}, fmt.Errorf("init pinecone: %w", err)
		}
		out.Pinecone = pc
	} else {
		log.Warn("PINECONE_API_KEY not set; vector retrieval disabled")
	}

	// Models
	provider, embedder, err := wireModels(log, cfg.LLM)
	if err != nil {
		return Clients{}, err
	}
	out.Provider = provider
	out.Embedder = embedder
	if out.Redis != nil && out.Embedder != nil {
		out.Embedder = redis.NewEmbeddingCache(out.Embedder, out.Redis, cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingCacheTTL, log)
	}
	return out, nil
}

// wireModels builds every configured provider and puts the router in front.
// Embeddings always go through the OpenAI-compatible API, or the mock.
func wireModels(log *logger.Logger, cfg LLMConfig) (engine.Provider, engine.Embedder, error) {
	providers := map[string]engine.Provider{}
	var embedder engine.Embedder

	if cfg.Provider == "mock" {
		m := mock.New()
		providers["mock"] = m
		embedder = m
	}
	if cfg.APIKey != "" || cfg.BaseURL != "" {
		oai, err := oaihttp.New(oaihttp.Config{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			EmbeddingModel: cfg.EmbeddingModel,
			Timeout:        cfg.RequestTimeout,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("init openai engine: %w", err)
		}
		providers["openai"] = oai
		if embedder == nil {
			embedder = oai
		}
	}
	if cfg.AnthropicAPIKey != "" {
		providers["anthropic"] = anthropic.New(anthropic.Config{
			BaseURL: cfg.AnthropicBaseURL,
			APIKey:  cfg.AnthropicAPIKey,
			Timeout: cfg.RequestTimeout,
		}, log)
	}
	if _, ok := providers[cfg.Provider]; !ok {
		return nil, nil, fmt.Errorf("LLM_PROVIDER=%q is not configured (set its API key)", cfg.Provider)
	}

	routes, err := router.ParseRoutes(cfg.Routes)
	if err != nil {
		return nil, nil, fmt.Errorf("LLM_MODEL_ROUTES: %w", err)
	}
	r, err := router.New(providers, cfg.Provider, routes)
	if err != nil {
		return nil, nil, fmt.Errorf("init model router: %w", err)
	}
	return r, embedder, nil
}
