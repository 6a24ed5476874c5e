package chat

import (
	"context"
	"fmt"

	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

// Orchestrator turns a PromptInput into a model request and the model output
// into an Answer. It keeps no per-request state.
type Orchestrator struct {
	provider engine.Provider
	prompts  *PromptAssembler
	cfg      Config
	log      *logger.Logger
}

func NewOrchestrator(provider engine.Provider, prompts *PromptAssembler, cfg Config, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		provider: provider,
		prompts:  prompts,
		cfg:      cfg,
		log:      log.With("component", "ChatOrchestrator"),
	}
}

func (o *Orchestrator) Model() string         { return o.cfg.Model }
func (o *Orchestrator) PromptVersion() string { return o.prompts.Version() }

func (o *Orchestrator) Request(in PromptInput) engine.Request {
	req := engine.Request{
		Model:          o.cfg.Model,
		Temperature:    o.cfg.Temperature,
		TopP:           o.cfg.TopP,
		ResponseFormat: engine.ResponseFormatJSON,
		Messages:       o.prompts.Build(in),
	}
	if o.cfg.MaxTokens > 0 {
		n := o.cfg.MaxTokens
		req.MaxTokens = &n
	}
	return req
}

func (o *Orchestrator) Complete(ctx context.Context, in PromptInput) (Answer, error) {
	raw, err := o.provider.Complete(ctx, o.Request(in))
	if err != nil {
		return Answer{}, fmt.Errorf("model complete: %w", err)
	}
	return o.Finish(raw, in.Evidence, in.Chunks), nil
}

func (o *Orchestrator) Stream(ctx context.Context, in PromptInput) (<-chan engine.Chunk, error) {
	ch, err := o.provider.Stream(ctx, o.Request(in))
	if err != nil {
		return nil, fmt.Errorf("model stream: %w", err)
	}
	return ch, nil
}

// Finish parses accumulated model output.
func (o *Orchestrator) Finish(raw string, items []evidence.Item, chunks []evidence.Chunk) Answer {
	ans := ParseResponse(raw, items, chunks)
	if ans.Malformed {
		o.log.Warn("Model output was not a JSON answer", "model", o.cfg.Model, "bytes", len(raw))
	}
	return ans
}
