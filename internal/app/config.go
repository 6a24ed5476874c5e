package app

import (
	"strings"
	"time"

	"github.com/yungbote/jobassist-backend/internal/clients/pinecone"
	"github.com/yungbote/jobassist-backend/internal/clients/redis"
	"github.com/yungbote/jobassist-backend/internal/data/db"
	"github.com/yungbote/jobassist-backend/internal/modules/chat"
	"github.com/yungbote/jobassist-backend/internal/modules/retrieval"
	"github.com/yungbote/jobassist-backend/internal/observability"
	"github.com/yungbote/jobassist-backend/internal/pkg/envutil"
)

type LLMConfig struct {
	Provider          string // openai, anthropic or mock
	BaseURL           string
	APIKey            string
	AnthropicBaseURL  string
	AnthropicAPIKey   string
	Routes            string
	EmbeddingModel    string
	RequestTimeout    time.Duration
	EmbeddingCacheTTL time.Duration
}

type Config struct {
	Addr            string
	LogMode         string
	AuthMode        string
	JWTSecretKey    string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	DB        db.Config
	LLM       LLMConfig
	Assistant chat.Config
	Pinecone  pinecone.Config
	IndexName string
	Retrieval retrieval.Config
	Redis     redis.Config
	Tracing   observability.TracingConfig
}

func LoadConfig() Config {
	addr := envutil.String("ADDR", "")
	if addr == "" {
		addr = ":" + envutil.String("PORT", "8080")
	}
	return Config{
		Addr:            addr,
		LogMode:         envutil.String("LOG_MODE", "development"),
		AuthMode:        envutil.String("AUTH_MODE", "jwt"),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:     splitList(envutil.String("CORS_ORIGINS", "")),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),

		DB: db.Config{
			Driver:       envutil.String("DB_DRIVER", "postgres"),
			Host:         envutil.String("POSTGRES_HOST", "localhost"),
			Port:         envutil.String("POSTGRES_PORT", "5432"),
			User:         envutil.String("POSTGRES_USER", "postgres"),
			Password:     envutil.String("POSTGRES_PASSWORD", ""),
			Name:         envutil.String("POSTGRES_NAME", "jobassist"),
			SSLMode:      envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:   envutil.String("SQLITE_PATH", ""),
			MaxOpenConns: envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(envutil.String("LLM_PROVIDER", "openai")),
			BaseURL:           envutil.String("LLM_BASE_URL", ""),
			APIKey:            envutil.String("LLM_API_KEY", envutil.String("OPENAI_API_KEY", "")),
			AnthropicBaseURL:  envutil.String("ANTHROPIC_BASE_URL", ""),
			AnthropicAPIKey:   envutil.String("ANTHROPIC_API_KEY", ""),
			Routes:            envutil.String("LLM_MODEL_ROUTES", ""),
			EmbeddingModel:    envutil.String("EMBEDDING_MODEL", "text-embedding-3-small"),
			RequestTimeout:    envutil.Duration("LLM_TIMEOUT", 60*time.Second),
			EmbeddingCacheTTL: envutil.Duration("EMBEDDING_CACHE_TTL", redis.DefaultEmbeddingTTL),
		},
		Assistant: chat.LoadConfig(),
		Pinecone: pinecone.Config{
			APIKey:     envutil.String("PINECONE_API_KEY", ""),
			APIVersion: envutil.String("PINECONE_API_VERSION", ""),
		},
		IndexName: envutil.String("PINECONE_INDEX_NAME", ""),
		Retrieval: retrieval.Config{
			Host:         envutil.String("PINECONE_INDEX_HOST", ""),
			Namespace:    envutil.String("PINECONE_NAMESPACE", ""),
			TopK:         envutil.Int("VECTOR_TOP_K", retrieval.DefaultTopK),
			FallbackTopK: envutil.Int("VECTOR_FALLBACK_TOP_K", retrieval.DefaultFallbackTopK),
		},
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		Tracing: observability.LoadTracingConfig(),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
