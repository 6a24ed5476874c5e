package retrieval

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/jobassist-backend/internal/clients/pinecone"
	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const (
	DefaultTopK         = 8
	DefaultFallbackTopK = 50
	FallbackName        = "fallback_unfiltered"
)

type Config struct {
	Host         string
	Namespace    string
	TopK         int
	FallbackTopK int
	Candidates   []FilterCandidate
}

type Diagnostics struct {
	FilterUsed   string            `json:"filter_used"`
	FilterErrors map[string]string `json:"filter_errors"`
	MatchCounts  map[string]int    `json:"match_counts"`
	FallbackUsed bool              `json:"fallback_used"`
	Skipped      string            `json:"skipped,omitempty"`
}

type Result struct {
	Chunks      []evidence.Chunk
	Diagnostics Diagnostics
}

type Retriever struct {
	embedder engine.Embedder
	index    pinecone.Client
	cfg      Config
	log      *logger.Logger
}

// NewRetriever accepts a nil index or embedder; Retrieve then reports the
// retrieval as skipped.
func NewRetriever(embedder engine.Embedder, index pinecone.Client, cfg Config, log *logger.Logger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.FallbackTopK <= 0 {
		cfg.FallbackTopK = DefaultFallbackTopK
	}
	if cfg.Candidates == nil {
		cfg.Candidates = DefaultFilterCandidates()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{embedder: embedder, index: index, cfg: cfg, log: log.With("component", "VectorRetriever")}
}

// Retrieve never fails; problems are reported in the diagnostics.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope Scope) (Result, error) {
	ctx, span := otel.Tracer("jobassist/retrieval").Start(ctx, "retrieval.retrieve")
	defer span.End()

	res := Result{Diagnostics: Diagnostics{
		FilterErrors: map[string]string{},
		MatchCounts:  map[string]int{},
	}}
	skip := func(reason string, kv ...any) (Result, error) {
		res.Diagnostics.Skipped = reason
		span.SetAttributes(attribute.String("retrieval.skipped", reason))
		r.log.Warn("Vector retrieval skipped", append([]any{"reason", reason}, kv...)...)
		return res, nil
	}

	switch {
	case r.index == nil:
		return skip("index_unavailable")
	case r.embedder == nil:
		return skip("embedder_unavailable")
	case strings.TrimSpace(r.cfg.Host) == "":
		return skip("host_missing")
	case strings.TrimSpace(r.cfg.Namespace) == "":
		return skip("namespace_missing")
	case strings.TrimSpace(query) == "":
		return skip("empty_query")
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return skip("embedding_failed", "error", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return skip("embedding_empty")
	}
	vec := vecs[0]

	for _, c := range r.cfg.Candidates {
		accepted, err := r.query(ctx, vec, c.Build(scope), r.cfg.TopK, scope)
		if err != nil {
			res.Diagnostics.FilterErrors[c.Name] = err.Error()
			r.log.Debug("Filter candidate failed", "filter", c.Name, "error", err)
			continue
		}
		res.Diagnostics.MatchCounts[c.Name] = len(accepted)
		if len(accepted) > 0 {
			res.Diagnostics.FilterUsed = c.Name
			res.Chunks = accepted
			span.SetAttributes(attribute.String("retrieval.filter_used", c.Name), attribute.Int("retrieval.matches", len(accepted)))
			return res, nil
		}
	}

	res.Diagnostics.FallbackUsed = true
	accepted, err := r.query(ctx, vec, nil, r.cfg.FallbackTopK, scope)
	if err != nil {
		res.Diagnostics.FilterErrors[FallbackName] = err.Error()
		r.log.Warn("Fallback vector query failed", "error", err)
		return res, nil
	}
	res.Diagnostics.MatchCounts[FallbackName] = len(accepted)
	if len(accepted) > 0 {
		res.Diagnostics.FilterUsed = FallbackName
	}
	res.Chunks = accepted
	span.SetAttributes(attribute.Bool("retrieval.fallback_used", true), attribute.Int("retrieval.matches", len(accepted)))
	return res, nil
}

func (r *Retriever) query(ctx context.Context, vec []float32, filter map[string]any, topK int, scope Scope) ([]evidence.Chunk, error) {
	resp, err := r.index.Query(ctx, r.cfg.Host, pinecone.QueryRequest{
		Namespace:       r.cfg.Namespace,
		Vector:          vec,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	var out []evidence.Chunk
	for _, m := range resp.Matches {
		if !Accept(m.Metadata, scope) {
			continue
		}
		out = append(out, toChunk(m))
	}
	return out, nil
}

func toChunk(m pinecone.QueryMatch) evidence.Chunk {
	c := evidence.Chunk{DocID: m.ID, Score: m.Score}
	if s, ok := metaString(m.Metadata, "doc_id", "docId"); ok && s != "" {
		c.DocID = s
	}
	if s, ok := metaString(m.Metadata, "type"); ok {
		c.Type = s
	}
	if s, ok := metaString(m.Metadata, "text", "chunk", "content"); ok {
		c.Text = s
	}
	if s, ok := metaString(m.Metadata, "date", "created_at"); ok {
		if t, ok := parseDate(s); ok {
			c.Date = &t
		}
	}
	return c
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
