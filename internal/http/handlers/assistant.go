package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/http/response"
	"github.com/yungbote/jobassist-backend/internal/pkg/ctxutil"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
	"github.com/yungbote/jobassist-backend/internal/services"
)

const (
	headerConversationID = "x-conversation-id"
	headerDebug          = "x-debug"
)

// AssistantAPI is the part of services.AssistantService the handler needs.
type AssistantAPI interface {
	GetConversation(ctx context.Context, id ctxutil.Identity, jobID, conversationID string) (*services.ConversationView, error)
	Chat(ctx context.Context, id ctxutil.Identity, jobID string, req services.ChatRequest) (*services.ChatResult, error)
	StreamChat(ctx context.Context, id ctxutil.Identity, jobID string, req services.ChatRequest) (*services.ChatStream, error)
}

type AssistantHandler struct {
	svc AssistantAPI
	log *logger.Logger
}

func NewAssistantHandler(svc AssistantAPI, log *logger.Logger) *AssistantHandler {
	return &AssistantHandler{svc: svc, log: log.With("handler", "AssistantHandler")}
}

type chatReq struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Stream         bool   `json:"stream"`
}

type messageView struct {
	Role         string          `json:"role"`
	Content      string          `json:"content"`
	CreatedAt    time.Time       `json:"created_at"`
	MetadataJSON json.RawMessage `json:"metadata_json"`
}

type conversationResp struct {
	ConversationID *string       `json:"conversation_id"`
	Messages       []messageView `json:"messages"`
}

type evidenceView struct {
	DocID string   `json:"doc_id"`
	Kind  string   `json:"kind"`
	Scope string   `json:"scope"`
	Date  string   `json:"date"`
	Text  string   `json:"text"`
	Score *float64 `json:"score,omitempty"`
}

type debugView struct {
	FilterUsed    string            `json:"filter_used"`
	FilterErrors  map[string]string `json:"filter_errors"`
	MatchCounts   map[string]int    `json:"match_counts"`
	FallbackUsed  bool              `json:"fallback_used"`
	Skipped       string            `json:"skipped,omitempty"`
	PromptVersion string            `json:"prompt_version"`
	Model         string            `json:"model"`
}

type chatResp struct {
	ConversationID string              `json:"conversation_id"`
	Answer         string              `json:"answer"`
	Citations      []evidence.Citation `json:"citations"`
	FollowUps      []string            `json:"follow_ups"`
	Evidence       []evidenceView      `json:"evidence"`
	Debug          *debugView          `json:"debug,omitempty"`
}

// GET /jobs/:jobId/ai/conversation?conversationId=
func (h *AssistantHandler) GetConversation(c *gin.Context) {
	id, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing identity"))
		return
	}
	view, err := h.svc.GetConversation(c.Request.Context(), id, c.Param("jobId"), c.Query("conversationId"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	out := conversationResp{Messages: make([]messageView, 0, len(view.Messages))}
	if view.ConversationID != "" {
		convID := view.ConversationID
		out.ConversationID = &convID
	}
	for _, m := range view.Messages {
		md := json.RawMessage(m.Metadata)
		if len(md) == 0 {
			md = json.RawMessage(`{}`)
		}
		out.Messages = append(out.Messages, messageView{
			Role:         m.Role,
			Content:      m.Content,
			CreatedAt:    m.CreatedAt,
			MetadataJSON: md,
		})
	}
	response.RespondOK(c, out)
}

// POST /jobs/:jobId/ai/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	id, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing identity"))
		return
	}
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	jobID := c.Param("jobId")
	in := services.ChatRequest{Message: req.Message, ConversationID: strings.TrimSpace(req.ConversationID)}
	debug := c.GetHeader(headerDebug) == "1"

	if !req.Stream {
		res, err := h.svc.Chat(c.Request.Context(), id, jobID, in)
		if err != nil {
			response.RespondAppError(c, err)
			return
		}
		c.Header(headerConversationID, res.ConversationID)
		response.RespondOK(c, buildChatResp(res, debug))
		return
	}

	stream, err := h.svc.StreamChat(c.Request.Context(), id, jobID, in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	defer stream.Cancel()

	c.Header(headerConversationID, stream.ConversationID)
	response.StartSSE(c)

	clientGone := c.Request.Context().Done()
	for delta := range stream.Deltas {
		select {
		case <-clientGone:
			stream.Cancel()
		default:
			response.WriteSSE(c, "delta", gin.H{"delta": delta})
		}
	}

	res, err := stream.Wait()
	if err != nil {
		if c.Request.Context().Err() != nil {
			return
		}
		_, code, msg := response.Classify(err)
		response.WriteSSE(c, "error", response.ErrorEnvelope{Error: response.APIError{Message: msg, Code: code}})
		return
	}
	response.WriteSSE(c, "done", buildChatResp(res, debug))
}

func buildChatResp(res *services.ChatResult, debug bool) chatResp {
	out := chatResp{
		ConversationID: res.ConversationID,
		Answer:         res.Answer.Text,
		Citations:      res.Answer.Citations,
		FollowUps:      res.Answer.FollowUps,
		Evidence:       make([]evidenceView, 0, len(res.Evidence)+len(res.Chunks)),
	}
	if out.Citations == nil {
		out.Citations = []evidence.Citation{}
	}
	if out.FollowUps == nil {
		out.FollowUps = []string{}
	}
	for _, it := range res.Evidence {
		out.Evidence = append(out.Evidence, evidenceView{
			DocID: it.DocID,
			Kind:  string(it.Kind),
			Scope: string(it.Scope),
			Date:  evidence.FormatDate(it.Date),
			Text:  it.Text,
		})
	}
	for _, ch := range res.Chunks {
		score := ch.Score
		v := evidenceView{
			DocID: ch.DocID,
			Kind:  "vector",
			Scope: string(evidence.ScopeJob),
			Text:  ch.Text,
			Score: &score,
		}
		if ch.Date != nil {
			v.Date = evidence.FormatDate(*ch.Date)
		}
		out.Evidence = append(out.Evidence, v)
	}
	if debug {
		d := res.Diagnostics
		out.Debug = &debugView{
			FilterUsed:    d.FilterUsed,
			FilterErrors:  d.FilterErrors,
			MatchCounts:   d.MatchCounts,
			FallbackUsed:  d.FallbackUsed,
			Skipped:       d.Skipped,
			PromptVersion: res.PromptVersion,
			Model:         res.Model,
		}
		if out.Debug.FilterErrors == nil {
			out.Debug.FilterErrors = map[string]string{}
		}
		if out.Debug.MatchCounts == nil {
			out.Debug.MatchCounts = map[string]int{}
		}
	}
	return out
}
