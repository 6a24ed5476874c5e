package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/inference/router"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("VECTOR_TOP_K", "12")
	t.Setenv("PINECONE_NAMESPACE", "jobs")
	t.Setenv("EMBEDDING_CACHE_TTL", "1h")
	t.Setenv("ASSISTANT_MODEL", "claude-3-5-sonnet")

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.Equal(t, "jobs", cfg.Retrieval.Namespace)
	assert.Equal(t, time.Hour, cfg.LLM.EmbeddingCacheTTL)
	assert.Equal(t, "claude-3-5-sonnet", cfg.Assistant.Model)
	assert.Equal(t, "jwt", cfg.AuthMode)
}

func TestLoadConfigAddrOverridesPort(t *testing.T) {
	t.Setenv("ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9090")
	assert.Equal(t, "127.0.0.1:7000", LoadConfig().Addr)
}

func TestWireModelsMock(t *testing.T) {
	provider, embedder, err := wireModels(logger.Nop(), LLMConfig{Provider: "mock"})
	require.NoError(t, err)
	require.NotNil(t, embedder)

	r, ok := provider.(*router.Router)
	require.True(t, ok)
	name, _ := r.Resolve("gpt-4o-mini")
	assert.Equal(t, "mock", name)

	out, err := provider.Complete(context.Background(), engine.Request{
		Model:    "gpt-4o-mini",
		Messages: []engine.Message{{Role: engine.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestWireModelsRoutes(t *testing.T) {
	provider, _, err := wireModels(logger.Nop(), LLMConfig{
		Provider:        "openai",
		APIKey:          "sk-test",
		AnthropicAPIKey: "ak-test",
		Routes:          "claude-=anthropic",
	})
	require.NoError(t, err)
	name, _ := provider.(*router.Router).Resolve("claude-3-5-haiku")
	assert.Equal(t, "anthropic", name)
	name, _ = provider.(*router.Router).Resolve("gpt-4o")
	assert.Equal(t, "openai", name)
}

func TestWireModelsRejectsUnconfiguredProvider(t *testing.T) {
	_, _, err := wireModels(logger.Nop(), LLMConfig{Provider: "anthropic"})
	assert.Error(t, err)

	_, _, err = wireModels(logger.Nop(), LLMConfig{Provider: "openai", APIKey: "k", Routes: "claude-=anthropic"})
	assert.Error(t, err)
}
