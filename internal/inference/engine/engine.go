package engine

import "context"

type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ResponseFormatJSON asks the backend for a single JSON object.
const ResponseFormatJSON = "json_object"

type Request struct {
	Model          string
	Temperature    float64
	TopP           *float64
	MaxTokens      *int
	ResponseFormat string
	Messages       []Message
}

// Chunk is one step of a streamed completion. A chunk with Err set is the
// last value sent before the channel closes.
type Chunk struct {
	Delta string
	Err   error
}

// Provider is a text-generation backend.
//
// Stream returns an error directly when the request cannot be started
// (transport failure, non-2xx status). Otherwise deltas arrive on the
// channel in order and the channel is closed when generation ends.
// Cancelling ctx stops the producer and releases the upstream connection.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Collect drains a stream into a single string.
func Collect(ch <-chan Chunk) (string, error) {
	var out []byte
	for c := range ch {
		if c.Err != nil {
			return string(out), c.Err
		}
		out = append(out, c.Delta...)
	}
	return string(out), nil
}
