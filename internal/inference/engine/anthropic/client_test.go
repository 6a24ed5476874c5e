package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
)

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("expected anthropic-version 2023-06-01, got %q", r.Header.Get("anthropic-version"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.System != "sys one\n\nsys two" {
			t.Errorf("expected joined system prompt, got %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens != defaultMaxTokens {
			t.Errorf("expected default max_tokens, got %d", req.MaxTokens)
		}

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"wor"},{"type":"text","text":"ld"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "test-key"}, nil)
	result, err := c.Complete(context.Background(), engine.Request{
		Model: "claude-test",
		Messages: []engine.Message{
			{Role: engine.RoleSystem, Content: "sys one"},
			{Role: engine.RoleSystem, Content: "sys two"},
			{Role: engine.RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "world" {
		t.Errorf("expected world, got %q", result)
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, nil)
	_, err := c.Complete(context.Background(), engine.Request{Model: "m", Messages: []engine.Message{{Role: engine.RoleUser, Content: "hi"}}})
	var upstream *engine.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests || !strings.Contains(upstream.Body, "rate_limit_error") {
		t.Errorf("unexpected upstream error: %+v", upstream)
	}
}

func TestStream_TextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Errorf("expected stream=true")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`event: message_start` + "\n" + `data: {"type":"message_start"}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}`,
			`event: ping` + "\n" + `data: {"type":"ping"}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}`,
			`event: message_stop` + "\n" + `data: {"type":"message_stop"}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"ignored"}}`,
		}
		for _, ev := range events {
			fmt.Fprintf(w, "%s\n\n", ev)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, nil)
	ch, err := c.Stream(context.Background(), engine.Request{Model: "m", Messages: []engine.Message{{Role: engine.RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	text, err := engine.Collect(ch)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if text != "Hello" {
		t.Errorf("expected Hello, got %q", text)
	}
}

func TestStream_ErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"par\"}}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, nil)
	ch, err := c.Stream(context.Background(), engine.Request{Model: "m", Messages: []engine.Message{{Role: engine.RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	text, err := engine.Collect(ch)
	if text != "par" {
		t.Errorf("expected partial text, got %q", text)
	}
	if err == nil || !strings.Contains(err.Error(), "overloaded_error") {
		t.Fatalf("expected overloaded error, got %v", err)
	}
}

func TestBuildRequest_RejectsUnknownRole(t *testing.T) {
	_, err := buildRequest(engine.Request{Messages: []engine.Message{{Role: "tool", Content: "x"}}}, false)
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}
