package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const providerName = "openai"

type Config struct {
	BaseURL             string
	APIKey              string
	ChatCompletionsPath string
	EmbeddingsPath      string
	EmbeddingModel      string
	Timeout             time.Duration
}

// Engine talks to any OpenAI-compatible chat completions / embeddings API.
type Engine struct {
	baseURL string
	apiKey  string

	chatCompletionsPath string
	embeddingsPath      string
	embeddingModel      string

	timeout time.Duration

	httpClient *http.Client
	log        *logger.Logger
}

func New(cfg Config, log *logger.Logger) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	chatPath := strings.TrimSpace(cfg.ChatCompletionsPath)
	if chatPath == "" {
		chatPath = "/v1/chat/completions"
	}
	embPath := strings.TrimSpace(cfg.EmbeddingsPath)
	if embPath == "" {
		embPath = "/v1/embeddings"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Engine{
		baseURL:             baseURL,
		apiKey:              strings.TrimSpace(cfg.APIKey),
		chatCompletionsPath: chatPath,
		embeddingsPath:      embPath,
		embeddingModel:      strings.TrimSpace(cfg.EmbeddingModel),
		timeout:             timeout,
		httpClient:          &http.Client{Transport: tr},
		log:                 log.With("engine", "OpenAIHTTP"),
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, log *logger.Logger, httpClient *http.Client) (*Engine, error) {
	e, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		e.httpClient = httpClient
	}
	return e, nil
}

// ---------------- Embeddings ----------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *Engine) EmbeddingModel() string { return e.embeddingModel }

func (e *Engine) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	if e.embeddingModel == "" {
		return nil, errors.New("oai_http: embedding model not configured")
	}

	var resp embeddingsResponse
	if err := e.doJSON(ctx, e.embeddingsPath, embeddingsRequest{Model: e.embeddingModel, Input: inputs}, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(inputs))
	for i, d := range resp.Data {
		idx := d.Index
		// Some servers omit indices but keep ordering.
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		if idx >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[idx] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("embeddings missing index=%d (model=%s)", i, e.embeddingModel)
		}
	}
	return out, nil
}

// ---------------- Chat completions ----------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	TopP           *float64       `json:"top_p,omitempty"`
	MaxTokens      *int           `json:"max_tokens,omitempty"`
	Stream         bool           `json:"stream,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Error any `json:"error,omitempty"`
}

func (e *Engine) Complete(ctx context.Context, req engine.Request) (string, error) {
	body, err := buildChatRequest(req, false)
	if err != nil {
		return "", err
	}
	var resp chatCompletionResponse
	if err := e.doJSON(ctx, e.chatCompletionsPath, body, &resp); err != nil {
		return "", err
	}
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content, nil
		}
		if strings.TrimSpace(c.Text) != "" {
			return c.Text, nil
		}
	}
	return "", nil
}

func (e *Engine) Stream(ctx context.Context, req engine.Request) (<-chan engine.Chunk, error) {
	body, err := buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+e.chatCompletionsPath, &buf)
	if err != nil {
		return nil, err
	}
	e.setHeaders(httpReq, "text/event-stream")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &engine.UpstreamError{Provider: providerName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, &engine.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return engine.Pump(ctx, providerName, resp.Body, e.decodeStreamEvent), nil
}

func (e *Engine) decodeStreamEvent(_ string, data string) (string, bool, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", false, nil
	}
	if data == "[DONE]" {
		return "", true, nil
	}
	var chunk chatCompletionStreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		e.log.Warn("Skipping malformed stream chunk", "error", err, "bytes", len(data))
		return "", false, nil
	}
	if chunk.Error != nil {
		b, _ := json.Marshal(chunk.Error)
		return "", false, &engine.UpstreamError{Provider: providerName, Body: string(b), Err: errors.New("stream error event")}
	}
	var sb strings.Builder
	for _, c := range chunk.Choices {
		if c.Delta.Content != "" {
			sb.WriteString(c.Delta.Content)
		} else {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), false, nil
}

func buildChatRequest(req engine.Request, stream bool) (chatCompletionRequest, error) {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := strings.TrimSpace(m.Role)
		if role == "" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	if len(msgs) == 0 {
		return chatCompletionRequest{}, errors.New("no messages")
	}
	out := chatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.ResponseFormat != "" {
		out.ResponseFormat = map[string]any{"type": req.ResponseFormat}
	}
	return out, nil
}

// ---------------- HTTP helpers ----------------

func (e *Engine) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

func (e *Engine) doJSON(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	ctx2, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodPost, e.baseURL+path, &buf)
	if err != nil {
		return err
	}
	e.setHeaders(req, "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return &engine.UpstreamError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &engine.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &engine.UpstreamError{Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
