package evidence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	jobrepos "github.com/yungbote/jobassist-backend/internal/data/repos/jobsite"
	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
	"github.com/yungbote/jobassist-backend/internal/modules/jobcontext"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

// Floor for the per-facet row cap when a limit is given; the merged list is
// capped separately.
const minFacetLimit = 25

type Aggregator struct {
	resolver jobcontext.Resolver
	events   jobrepos.JobEventRepo
	notes    jobrepos.NoteRepo
	users    jobrepos.UserRepo
	log      *logger.Logger
}

func NewAggregator(resolver jobcontext.Resolver, events jobrepos.JobEventRepo, notes jobrepos.NoteRepo, users jobrepos.UserRepo, log *logger.Logger) *Aggregator {
	return &Aggregator{
		resolver: resolver,
		events:   events,
		notes:    notes,
		users:    users,
		log:      log.With("component", "EvidenceAggregator"),
	}
}

type facet struct {
	name string
	load func(dbc dbctx.Context) ([]sourced, error)
}

// sourced is an item plus the user id that wrote it, resolved to a name
// after the fan-out joins.
type sourced struct {
	item     evidence.Item
	authorID string
}

// Gather returns job, property and client evidence for the job, newest first.
// All five facets are always fetched; limit <= 0 means uncapped.
func (a *Aggregator) Gather(ctx context.Context, tenantID, jobID string, limit int) ([]evidence.Item, error) {
	ctx, span := otel.Tracer("jobassist/evidence").Start(ctx, "evidence.gather")
	defer span.End()

	ref, err := a.resolver.ResolveJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}

	perFacet := limit
	if limit > 0 && perFacet < minFacetLimit {
		perFacet = minFacetLimit
	}

	facets := []facet{
		{name: "job_events", load: func(dbc dbctx.Context) ([]sourced, error) {
			rows, err := a.events.ListByJob(dbc, tenantID, ref.JobID, perFacet)
			return eventItems(rows, evidence.ScopeJob), err
		}},
		{name: "job_notes", load: func(dbc dbctx.Context) ([]sourced, error) {
			rows, err := a.notes.ListByScope(dbc, tenantID, jobsite.NoteScopeJob, ref.JobID, perFacet)
			return noteItems(rows, evidence.ScopeJob), err
		}},
		{name: "property_events", load: func(dbc dbctx.Context) ([]sourced, error) {
			rows, err := a.events.ListByProperty(dbc, tenantID, ref.PropertyID, perFacet)
			return eventItems(rows, evidence.ScopeProperty), err
		}},
		{name: "property_notes", load: func(dbc dbctx.Context) ([]sourced, error) {
			rows, err := a.notes.ListByScope(dbc, tenantID, jobsite.NoteScopeProperty, ref.PropertyID, perFacet)
			return noteItems(rows, evidence.ScopeProperty), err
		}},
		{name: "client_notes", load: func(dbc dbctx.Context) ([]sourced, error) {
			rows, err := a.notes.ListByScope(dbc, tenantID, jobsite.NoteScopeClient, ref.ClientID, perFacet)
			return noteItems(rows, evidence.ScopeClient), err
		}},
	}

	var (
		mu     sync.Mutex
		merged []sourced
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(facets))
	for _, f := range facets {
		f := f
		g.Go(func() error {
			items, err := f.load(dbctx.Context{Ctx: gctx})
			if err != nil {
				return fmt.Errorf("load %s: %w", f.name, err)
			}
			mu.Lock()
			merged = append(merged, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Job events also match the property facet; keep the job-scoped copy.
	merged = dedupe(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		x, y := merged[i].item, merged[j].item
		if !x.Date.Equal(y.Date) {
			return x.Date.After(y.Date)
		}
		return x.DocID < y.DocID
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	out, err := a.withAuthors(ctx, tenantID, merged)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("evidence.count", len(out)))
	a.log.Debug("Gathered evidence", "job_id", jobID, "count", len(out))
	return out, nil
}

func (a *Aggregator) withAuthors(ctx context.Context, tenantID string, rows []sourced) ([]evidence.Item, error) {
	out := make([]evidence.Item, len(rows))
	ids := make([]string, 0)
	seen := map[string]struct{}{}
	for i, r := range rows {
		out[i] = r.item
		if r.authorID == "" {
			continue
		}
		if _, ok := seen[r.authorID]; !ok {
			seen[r.authorID] = struct{}{}
			ids = append(ids, r.authorID)
		}
	}
	if len(ids) == 0 || a.users == nil {
		return out, nil
	}
	sort.Strings(ids)
	users, err := a.users.GetByIDs(dbctx.Context{Ctx: ctx}, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	byID := make(map[string]*jobsite.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i, r := range rows {
		if u := byID[r.authorID]; u != nil {
			out[i].AuthorName = u.Name
			out[i].AuthorEmail = u.Email
		}
	}
	return out, nil
}

func eventItems(rows []*jobsite.JobEvent, scope evidence.Scope) []sourced {
	out := make([]sourced, 0, len(rows))
	for _, r := range rows {
		if r == nil || strings.TrimSpace(r.Body) == "" {
			continue
		}
		text := strings.TrimSpace(r.Body)
		if r.EventType != "" {
			text = r.EventType + ": " + text
		}
		out = append(out, sourced{
			item:     evidence.Item{DocID: r.ID, Kind: evidence.KindJobEvent, Scope: scope, Date: r.CreatedAt, Text: text},
			authorID: deref(r.AuthorUserID),
		})
	}
	return out
}

func noteItems(rows []*jobsite.Note, scope evidence.Scope) []sourced {
	out := make([]sourced, 0, len(rows))
	for _, r := range rows {
		if r == nil || strings.TrimSpace(r.Body) == "" {
			continue
		}
		out = append(out, sourced{
			item:     evidence.Item{DocID: r.ID, Kind: evidence.KindNote, Scope: scope, Date: r.CreatedAt, Text: strings.TrimSpace(r.Body)},
			authorID: deref(r.AuthorUserID),
		})
	}
	return out
}

func dedupe(rows []sourced) []sourced {
	seen := make(map[string]int, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := string(r.item.Kind) + ":" + r.item.DocID
		if idx, ok := seen[key]; ok {
			if r.item.Scope == evidence.ScopeJob {
				out[idx] = r
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
