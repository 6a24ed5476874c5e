package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jobassist-backend/internal/clients/pinecone"
	"github.com/yungbote/jobassist-backend/internal/inference/engine/mock"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type stubIndex struct {
	host        string
	describeErr error
	described   []string
}

func (s *stubIndex) DescribeIndex(_ context.Context, name string) (*pinecone.IndexDescription, error) {
	s.described = append(s.described, name)
	if s.describeErr != nil {
		return nil, s.describeErr
	}
	return &pinecone.IndexDescription{Name: name, Host: s.host}, nil
}

func (s *stubIndex) Query(context.Context, string, pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
	return &pinecone.QueryResponse{}, nil
}

func TestWireRetrieverDisabledWhenHostLookupFails(t *testing.T) {
	idx := &stubIndex{describeErr: errors.New("connection refused")}
	cfg := Config{IndexName: "jobs-index"}

	r := wireRetriever(context.Background(), logger.Nop(), cfg, Clients{Pinecone: idx, Embedder: mock.New()})
	assert.Nil(t, r)
	assert.Equal(t, []string{"jobs-index"}, idx.described)
}

func TestWireRetriever(t *testing.T) {
	assert.Nil(t, wireRetriever(context.Background(), logger.Nop(), Config{}, Clients{}))

	idx := &stubIndex{host: "jobs-abc.svc.pinecone.io"}
	r := wireRetriever(context.Background(), logger.Nop(), Config{IndexName: "jobs-index"}, Clients{Pinecone: idx, Embedder: mock.New()})
	require.NotNil(t, r)
	assert.Equal(t, []string{"jobs-index"}, idx.described)
}
