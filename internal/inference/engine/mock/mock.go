package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"strings"
	"sync"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
)

const streamChunkBytes = 16

// Engine is a deterministic Provider and Embedder for local runs and tests.
// Embeddings are derived from a hash of the input; completions answer with a
// JSON object echoing the last user message unless Response is set.
type Engine struct {
	EmbeddingDims int
	// Response, when non-empty, is returned verbatim by Complete and Stream.
	Response string
	// Err, when set, fails every call.
	Err error

	mu         sync.Mutex
	embedCalls int
	requests   []engine.Request
}

func New() *Engine {
	return &Engine{EmbeddingDims: 8}
}

func (e *Engine) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	e.embedCalls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dims := e.EmbeddingDims
	if dims <= 0 {
		dims = 8
	}
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		h := sha256.Sum256([]byte(s))
		vec := make([]float32, dims)
		for j := 0; j < dims; j++ {
			off := (j * 4) % (len(h) - 3)
			u := binary.LittleEndian.Uint32(h[off:])
			vec[j] = float32(u%10_000)/10_000.0 - 0.5
		}
		out[i] = vec
	}
	return out, nil
}

func (e *Engine) Complete(ctx context.Context, req engine.Request) (string, error) {
	e.record(req)
	if e.Err != nil {
		return "", e.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.answer(req), nil
}

// Stream emits the same text Complete would, in fixed-size chunks.
func (e *Engine) Stream(ctx context.Context, req engine.Request) (<-chan engine.Chunk, error) {
	e.record(req)
	if e.Err != nil {
		return nil, e.Err
	}
	full := e.answer(req)
	out := make(chan engine.Chunk)
	go func() {
		defer close(out)
		for i := 0; i < len(full); i += streamChunkBytes {
			end := min(i+streamChunkBytes, len(full))
			select {
			case out <- engine.Chunk{Delta: full[i:end]}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (e *Engine) EmbedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedCalls
}

// Requests returns a copy of every generation request seen so far.
func (e *Engine) Requests() []engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Request(nil), e.requests...)
}

func (e *Engine) record(req engine.Request) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
}

func (e *Engine) answer(req engine.Request) string {
	if e.Response != "" {
		return e.Response
	}
	var user string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if strings.EqualFold(req.Messages[i].Role, engine.RoleUser) {
			user = req.Messages[i].Content
			break
		}
	}
	text := "mock: ok"
	if strings.TrimSpace(user) != "" {
		text = "mock: " + user
	}
	b, _ := json.Marshal(map[string]any{
		"answer":     text,
		"citations":  []any{},
		"follow_ups": []string{},
	})
	return string(b)
}
