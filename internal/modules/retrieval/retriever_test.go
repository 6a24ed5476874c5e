package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jobassist-backend/internal/clients/pinecone"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// fakeIndex answers queries by inspecting which filter was sent.
type fakeIndex struct {
	respond func(req pinecone.QueryRequest) (*pinecone.QueryResponse, error)
	seen    []pinecone.QueryRequest
}

func (f *fakeIndex) DescribeIndex(context.Context, string) (*pinecone.IndexDescription, error) {
	return &pinecone.IndexDescription{}, nil
}

func (f *fakeIndex) Query(_ context.Context, _ string, req pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
	f.seen = append(f.seen, req)
	return f.respond(req)
}

var scope = Scope{TenantID: "tenant-a", JobID: "job-1"}

func md(tenant, job string, extra map[string]any) map[string]any {
	out := map[string]any{"tenantId": tenant, "jobId": job}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func candidates(names ...string) []FilterCandidate {
	out := make([]FilterCandidate, 0, len(names))
	for _, n := range names {
		name := n
		out = append(out, FilterCandidate{Name: name, Build: func(Scope) map[string]any {
			return map[string]any{"candidate": name}
		}})
	}
	return out
}

func TestRetrieveUsesFirstCandidateWithAcceptedMatches(t *testing.T) {
	idx := &fakeIndex{respond: func(req pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
		switch req.Filter["candidate"] {
		case "first":
			return &pinecone.QueryResponse{}, nil
		case "second":
			// Matches exist but belong to another tenant.
			return &pinecone.QueryResponse{Matches: []pinecone.QueryMatch{
				{ID: "x", Score: 0.9, Metadata: md("tenant-b", "job-1", nil)},
			}}, nil
		case "third":
			return &pinecone.QueryResponse{Matches: []pinecone.QueryMatch{
				{ID: "c1", Score: 0.8, Metadata: md("tenant-a", "job-1", map[string]any{"text": "Replaced contactor", "type": "job_event", "date": "2024-05-01T10:00:00Z"})},
				{ID: "c2", Score: 0.7, Metadata: md("tenant-a", "job-2", nil)},
			}}, nil
		default:
			t.Fatalf("unexpected query after a candidate matched: %v", req.Filter)
			return nil, nil
		}
	}}
	emb := &countingEmbedder{}
	r := NewRetriever(emb, idx, Config{Host: "idx.pinecone.io", Namespace: "jobs", Candidates: candidates("first", "second", "third", "fourth")}, nil)

	res, err := r.Retrieve(context.Background(), "why is RTU-2 not cooling", scope)
	require.NoError(t, err)

	assert.Equal(t, "third", res.Diagnostics.FilterUsed)
	assert.False(t, res.Diagnostics.FallbackUsed)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "c1", res.Chunks[0].DocID)
	assert.Equal(t, "Replaced contactor", res.Chunks[0].Text)
	assert.Equal(t, "job_event", res.Chunks[0].Type)
	require.NotNil(t, res.Chunks[0].Date)
	assert.Equal(t, 2024, res.Chunks[0].Date.Year())
	assert.Equal(t, map[string]int{"first": 0, "second": 0, "third": 1}, res.Diagnostics.MatchCounts)
	assert.Equal(t, 1, emb.calls)
	assert.Len(t, idx.seen, 3)
}

func TestRetrieveFallsBackToBroadQuery(t *testing.T) {
	idx := &fakeIndex{respond: func(req pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
		if req.Filter == nil {
			return &pinecone.QueryResponse{Matches: []pinecone.QueryMatch{
				{ID: "other", Metadata: md("tenant-b", "job-1", nil)},
				{ID: "mine", Metadata: map[string]any{"tenant_id": "tenant-a", "job_id": "job-1", "chunk": "Belt tension ok"}},
			}}, nil
		}
		if req.Filter["candidate"] == "broken" {
			return nil, errors.New("filter type mismatch")
		}
		return &pinecone.QueryResponse{}, nil
	}}
	emb := &countingEmbedder{}
	r := NewRetriever(emb, idx, Config{Host: "h", Namespace: "ns", FallbackTopK: 40, Candidates: candidates("broken", "empty")}, nil)

	res, err := r.Retrieve(context.Background(), "belt", scope)
	require.NoError(t, err)

	assert.True(t, res.Diagnostics.FallbackUsed)
	assert.Equal(t, FallbackName, res.Diagnostics.FilterUsed)
	assert.Equal(t, "filter type mismatch", res.Diagnostics.FilterErrors["broken"])
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "mine", res.Chunks[0].DocID)
	assert.Equal(t, "Belt tension ok", res.Chunks[0].Text)

	last := idx.seen[len(idx.seen)-1]
	assert.Nil(t, last.Filter)
	assert.Equal(t, 40, last.TopK)
	assert.Equal(t, 1, emb.calls)
}

func TestRetrieveSkipsWithoutFailing(t *testing.T) {
	idx := &fakeIndex{respond: func(pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
		t.Fatal("index must not be queried")
		return nil, nil
	}}

	r := NewRetriever(&countingEmbedder{err: errors.New("embedding backend down")}, idx, Config{Host: "h", Namespace: "ns"}, nil)
	res, err := r.Retrieve(context.Background(), "q", scope)
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, "embedding_failed", res.Diagnostics.Skipped)

	r = NewRetriever(&countingEmbedder{}, nil, Config{Host: "h", Namespace: "ns"}, nil)
	res, err = r.Retrieve(context.Background(), "q", scope)
	require.NoError(t, err)
	assert.Equal(t, "index_unavailable", res.Diagnostics.Skipped)

	r = NewRetriever(&countingEmbedder{}, idx, Config{Host: "h"}, nil)
	res, err = r.Retrieve(context.Background(), "q", scope)
	require.NoError(t, err)
	assert.Equal(t, "namespace_missing", res.Diagnostics.Skipped)
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept(map[string]any{"tenantId": "tenant-a", "jobId": "job-1"}, scope))
	assert.True(t, Accept(map[string]any{"tenant_id": "7", "job_id": float64(42)}, Scope{TenantID: "7", JobID: "42"}))
	assert.False(t, Accept(map[string]any{"tenantId": "tenant-a"}, scope))
	assert.False(t, Accept(map[string]any{"tenantId": "tenant-a", "jobId": "job-10"}, scope))
	assert.False(t, Accept(nil, scope))
}

func TestDefaultFilterCandidates(t *testing.T) {
	cs := DefaultFilterCandidates()
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"tenant_job_eq", "tenant_job_in", "tenant_job_plain", "tenant_only", "job_only"}, names)
	assert.Equal(t, map[string]any{"tenantId": "tenant-a", "jobId": "job-1"}, cs[2].Build(scope))
}
