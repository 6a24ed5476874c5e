package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/jobassist-backend/internal/clients/pinecone"
	"github.com/yungbote/jobassist-backend/internal/modules/chat"
	"github.com/yungbote/jobassist-backend/internal/modules/evidence"
	"github.com/yungbote/jobassist-backend/internal/modules/jobcontext"
	"github.com/yungbote/jobassist-backend/internal/modules/retrieval"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
	"github.com/yungbote/jobassist-backend/internal/services"
)

type Services struct {
	Assistant *services.AssistantService
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	builder := jobcontext.NewBuilder(repos.Job, repos.Equipment, repos.JobEvent, log)
	aggregator := evidence.NewAggregator(builder, repos.JobEvent, repos.Note, repos.User, log)

	retriever := wireRetriever(ctx, log, cfg, clients)

	tmpl, err := chat.LoadPromptTemplate()
	if err != nil {
		return Services{}, fmt.Errorf("load prompt template: %w", err)
	}
	prompts := chat.NewPromptAssembler(tmpl, cfg.Assistant)
	orch := chat.NewOrchestrator(clients.Provider, prompts, cfg.Assistant, log)
	log.Info("Assistant configured", "model", orch.Model(), "prompt_version", orch.PromptVersion())

	return Services{
		Assistant: services.NewAssistantService(db, log, builder, aggregator, retriever, orch,
			repos.Conversation, repos.Message, cfg.Assistant),
	}, nil
}

// wireRetriever returns nil when Pinecone is not configured or its index host
// cannot be resolved; chat then runs on structured evidence only.
func wireRetriever(ctx context.Context, log *logger.Logger, cfg Config, clients Clients) services.VectorRetriever {
	if clients.Pinecone == nil {
		return nil
	}
	rcfg := cfg.Retrieval
	host, err := pinecone.ResolveHost(ctx, clients.Pinecone, rcfg.Host, cfg.IndexName)
	if err != nil {
		log.Warn("Pinecone index host lookup failed; vector retrieval disabled", "index", cfg.IndexName, "error", err)
		return nil
	}
	rcfg.Host = host
	return retrieval.NewRetriever(clients.Embedder, clients.Pinecone, rcfg, log)
}
