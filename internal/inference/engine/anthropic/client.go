package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const (
	providerName     = "anthropic"
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Engine implements engine.Provider against the Anthropic Messages API.
type Engine struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Engine {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeout: timeout,
		client:  &http.Client{},
		log:     log.With("engine", "Anthropic"),
	}
}

// NewWithHTTPClient swaps the transport, mainly for tests.
func NewWithHTTPClient(cfg Config, log *logger.Logger, hc *http.Client) *Engine {
	e := New(cfg, log)
	if hc != nil {
		e.client = hc
	}
	return e
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildRequest folds system messages into the top-level system field; the
// Messages API only accepts user and assistant turns.
func buildRequest(req engine.Request, stream bool) (request, error) {
	var (
		system []string
		msgs   []message
	)
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case engine.RoleSystem:
			system = append(system, m.Content)
		case engine.RoleUser, engine.RoleAssistant:
			msgs = append(msgs, message{Role: m.Role, Content: m.Content})
		default:
			return request{}, fmt.Errorf("unsupported role %q", m.Role)
		}
	}
	if len(msgs) == 0 {
		return request{}, errors.New("no messages")
	}
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}
	temp := req.Temperature
	return request{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
		Messages:    msgs,
		Temperature: &temp,
		TopP:        req.TopP,
		Stream:      stream,
	}, nil
}

func (e *Engine) newRequest(ctx context.Context, body request) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/messages", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func upstreamFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return &engine.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(raw)}
}

func (e *Engine) Complete(ctx context.Context, req engine.Request) (string, error) {
	body, err := buildRequest(req, false)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := e.newRequest(ctx, body)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", &engine.UpstreamError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", upstreamFromResponse(resp)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &engine.UpstreamError{Provider: providerName, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}

func (e *Engine) Stream(ctx context.Context, req engine.Request) (<-chan engine.Chunk, error) {
	body, err := buildRequest(req, true)
	if err != nil {
		return nil, err
	}
	httpReq, err := e.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &engine.UpstreamError{Provider: providerName, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, upstreamFromResponse(resp)
	}
	return engine.Pump(ctx, providerName, resp.Body, e.decodeStreamEvent), nil
}

func (e *Engine) decodeStreamEvent(event, data string) (string, bool, error) {
	var ev streamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		e.log.Warn("Skipping malformed stream event", "event", event, "error", err)
		return "", false, nil
	}
	kind := ev.Type
	if kind == "" {
		kind = event
	}
	switch kind {
	case "content_block_delta":
		if ev.Delta.Type == "text_delta" {
			return ev.Delta.Text, false, nil
		}
	case "message_stop":
		return "", true, nil
	case "error":
		msg := "stream error event"
		if ev.Error != nil {
			msg = ev.Error.Type + ": " + ev.Error.Message
		}
		return "", false, &engine.UpstreamError{Provider: providerName, Err: errors.New(msg)}
	}
	return "", false, nil
}
