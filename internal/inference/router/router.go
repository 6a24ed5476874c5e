package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
)

// Route sends models whose name starts with Prefix to the named provider.
type Route struct {
	Prefix   string
	Provider string
}

// Router picks a provider per request by model name. It implements
// engine.Provider itself so callers never see the routing table.
type Router struct {
	providers map[string]engine.Provider
	routes    []Route
	def       string
}

func New(providers map[string]engine.Provider, defaultProvider string, routes []Route) (*Router, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("router: no providers configured")
	}
	def := strings.ToLower(strings.TrimSpace(defaultProvider))
	if _, ok := providers[def]; !ok {
		return nil, fmt.Errorf("router: unknown default provider %q", defaultProvider)
	}
	out := make([]Route, 0, len(routes))
	for _, rt := range routes {
		name := strings.ToLower(strings.TrimSpace(rt.Provider))
		prefix := strings.TrimSpace(rt.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("router: empty prefix for provider %q", rt.Provider)
		}
		if _, ok := providers[name]; !ok {
			return nil, fmt.Errorf("router: unknown provider %q for prefix %q", rt.Provider, prefix)
		}
		out = append(out, Route{Prefix: prefix, Provider: name})
	}
	// Longest prefix wins; ties keep config order.
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Prefix) > len(out[j].Prefix) })
	return &Router{providers: providers, routes: out, def: def}, nil
}

// ParseRoutes reads "prefix=provider" pairs separated by commas,
// e.g. "claude-=anthropic,gpt-=openai".
func ParseRoutes(s string) ([]Route, error) {
	var out []Route
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prefix, provider, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(prefix) == "" || strings.TrimSpace(provider) == "" {
			return nil, fmt.Errorf("router: invalid route %q (want prefix=provider)", part)
		}
		out = append(out, Route{Prefix: strings.TrimSpace(prefix), Provider: strings.TrimSpace(provider)})
	}
	return out, nil
}

// Resolve returns the provider name and provider for a model.
func (r *Router) Resolve(model string) (string, engine.Provider) {
	model = strings.TrimSpace(model)
	for _, rt := range r.routes {
		if strings.HasPrefix(model, rt.Prefix) {
			return rt.Provider, r.providers[rt.Provider]
		}
	}
	return r.def, r.providers[r.def]
}

func (r *Router) Complete(ctx context.Context, req engine.Request) (string, error) {
	name, p := r.Resolve(req.Model)
	ctx, span := startSpan(ctx, "engine.complete", name, req.Model)
	defer span.End()

	out, err := p.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "complete failed")
	}
	return out, err
}

// Stream's span covers only the request setup; the channel outlives it.
func (r *Router) Stream(ctx context.Context, req engine.Request) (<-chan engine.Chunk, error) {
	name, p := r.Resolve(req.Model)
	ctx, span := startSpan(ctx, "engine.stream", name, req.Model)
	defer span.End()

	ch, err := p.Stream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
	}
	return ch, err
}

func startSpan(ctx context.Context, op, provider, model string) (context.Context, trace.Span) {
	return otel.Tracer("jobassist/engine").Start(ctx, op, trace.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	))
}
