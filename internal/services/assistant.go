package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	chatrepos "github.com/yungbote/jobassist-backend/internal/data/repos/chat"
	chatdomain "github.com/yungbote/jobassist-backend/internal/domain/chat"
	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/modules/chat"
	"github.com/yungbote/jobassist-backend/internal/modules/jobcontext"
	"github.com/yungbote/jobassist-backend/internal/modules/retrieval"
	"github.com/yungbote/jobassist-backend/internal/pkg/ctxutil"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type ContextBuilder interface {
	Build(ctx context.Context, tenantID, jobID string, opts ...jobcontext.Option) (*jobcontext.Snapshot, error)
}

type EvidenceGatherer interface {
	Gather(ctx context.Context, tenantID, jobID string, limit int) ([]evidence.Item, error)
}

type VectorRetriever interface {
	Retrieve(ctx context.Context, query string, scope retrieval.Scope) (retrieval.Result, error)
}

type ChatRequest struct {
	Message        string
	ConversationID string
}

type ChatResult struct {
	ConversationID     string
	UserMessageID      string
	AssistantMessageID string
	Answer             chat.Answer
	Evidence           []evidence.Item
	Chunks             []evidence.Chunk
	Diagnostics        retrieval.Diagnostics
	PromptVersion      string
	Model              string
}

// ConversationView is empty (zero ConversationID, no messages) when the
// caller has no matching conversation.
type ConversationView struct {
	ConversationID string
	Messages       []*chatdomain.Message
}

// ChatStream delivers one streamed turn. Deltas is closed when generation
// ends; Wait then reports the persisted result or the error that stopped the
// turn. Cancel abandons the turn; it is safe to call more than once.
type ChatStream struct {
	ConversationID string
	Deltas         <-chan string
	Wait           func() (*ChatResult, error)
	Cancel         func()
}

type chatState string

const (
	stateValidating            chatState = "validating"
	stateBuildingContext       chatState = "building_context"
	stateGatheringEvidence     chatState = "gathering_evidence"
	stateResolvingConversation chatState = "resolving_conversation"
	stateInvoking              chatState = "invoking"
	statePersisting            chatState = "persisting"
	stateDone                  chatState = "done"
	stateFailed                chatState = "failed"
)

type AssistantService struct {
	db            *gorm.DB
	log           *logger.Logger
	builder       ContextBuilder
	gatherer      EvidenceGatherer
	retriever     VectorRetriever
	orch          *chat.Orchestrator
	conversations chatrepos.ConversationRepo
	messages      chatrepos.MessageRepo
	cfg           chat.Config
	now           func() time.Time
}

func NewAssistantService(
	db *gorm.DB,
	baseLog *logger.Logger,
	builder ContextBuilder,
	gatherer EvidenceGatherer,
	retriever VectorRetriever,
	orch *chat.Orchestrator,
	conversations chatrepos.ConversationRepo,
	messages chatrepos.MessageRepo,
	cfg chat.Config,
) *AssistantService {
	return &AssistantService{
		db:            db,
		log:           baseLog.With("service", "AssistantService"),
		builder:       builder,
		gatherer:      gatherer,
		retriever:     retriever,
		orch:          orch,
		conversations: conversations,
		messages:      messages,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// turn carries everything prepared before the model is called.
type turn struct {
	identity       ctxutil.Identity
	jobID          string
	message        string
	conversationID string
	newThread      bool
	startedAt      time.Time
	input          chat.PromptInput
	diagnostics    retrieval.Diagnostics
	log            *logger.Logger
}

func (s *AssistantService) GetConversation(ctx context.Context, id ctxutil.Identity, jobID, conversationID string) (*ConversationView, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: missing identity", apperr.ErrUnauthorized)
	}
	dbc := dbctx.Context{Ctx: ctx}

	var (
		conv *chatdomain.Conversation
		err  error
	)
	if conversationID = strings.TrimSpace(conversationID); conversationID != "" {
		conv, err = s.conversations.FindByID(dbc, id.TenantID, conversationID)
	} else {
		conv, err = s.conversations.FindLatest(dbc, id.TenantID, jobID, id.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil || conv.JobID != jobID {
		return &ConversationView{Messages: []*chatdomain.Message{}}, nil
	}

	msgs, err := s.messages.ListByConversation(dbc, id.TenantID, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &ConversationView{ConversationID: conv.ID, Messages: msgs}, nil
}

// Chat runs one blocking turn and persists it.
func (s *AssistantService) Chat(ctx context.Context, id ctxutil.Identity, jobID string, req ChatRequest) (*ChatResult, error) {
	ctx, span := otel.Tracer("jobassist/assistant").Start(ctx, "assistant.chat")
	defer span.End()

	t, err := s.prepare(ctx, span, id, jobID, req)
	if err != nil {
		return nil, s.fail(span, s.log, err)
	}

	s.enter(span, t.log, stateInvoking)
	ans, err := s.orch.Complete(ctx, t.input)
	if err != nil {
		return nil, s.fail(span, t.log, err)
	}

	res, err := s.finish(ctx, span, t, ans)
	if err != nil {
		return nil, s.fail(span, t.log, err)
	}
	return res, nil
}

// StreamChat prepares the turn synchronously, so validation and lookup errors
// are returned before any delta is produced.
func (s *AssistantService) StreamChat(ctx context.Context, id ctxutil.Identity, jobID string, req ChatRequest) (*ChatStream, error) {
	ctx, span := otel.Tracer("jobassist/assistant").Start(ctx, "assistant.chat_stream")

	t, err := s.prepare(ctx, span, id, jobID, req)
	if err != nil {
		err = s.fail(span, s.log, err)
		span.End()
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.enter(span, t.log, stateInvoking)
	upstream, err := s.orch.Stream(streamCtx, t.input)
	if err != nil {
		cancel()
		err = s.fail(span, t.log, err)
		span.End()
		return nil, err
	}

	deltas := make(chan string)
	done := make(chan struct{})
	var (
		result    *ChatResult
		resultErr error
	)
	go func() {
		defer close(done)
		defer span.End()
		defer cancel()
		defer close(deltas)

		result, resultErr = s.consume(streamCtx, span, t, upstream, deltas)
		if resultErr != nil {
			resultErr = s.fail(span, t.log, resultErr)
		}
	}()

	return &ChatStream{
		ConversationID: t.conversationID,
		Deltas:         deltas,
		Wait: func() (*ChatResult, error) {
			<-done
			return result, resultErr
		},
		Cancel: cancel,
	}, nil
}

func (s *AssistantService) consume(ctx context.Context, span trace.Span, t *turn, upstream <-chan engine.Chunk, deltas chan<- string) (*ChatResult, error) {
	var raw strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case c, ok := <-upstream:
			if !ok {
				// A provider closes quietly on cancellation; never persist a
				// truncated answer.
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				ans := s.orch.Finish(raw.String(), t.input.Evidence, t.input.Chunks)
				return s.finish(ctx, span, t, ans)
			}
			if c.Err != nil {
				return nil, c.Err
			}
			if c.Delta == "" {
				continue
			}
			raw.WriteString(c.Delta)
			select {
			case deltas <- c.Delta:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

func (s *AssistantService) prepare(ctx context.Context, span trace.Span, id ctxutil.Identity, jobID string, req ChatRequest) (*turn, error) {
	log := s.log.With("tenant_id", id.TenantID, "job_id", jobID, "user_id", id.UserID)
	s.enter(span, log, stateValidating)
	if !id.Valid() {
		return nil, fmt.Errorf("%w: missing identity", apperr.ErrUnauthorized)
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, apperr.Invalid("invalid_request", "job id is required")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, apperr.Invalid("message_required", "message is required")
	}
	span.SetAttributes(attribute.String("job.id", jobID))

	t := &turn{identity: id, jobID: jobID, message: msg, startedAt: s.now(), log: log}

	s.enter(span, log, stateBuildingContext)
	snap, err := s.builder.Build(ctx, id.TenantID, jobID, jobcontext.WithRecentEventLimit(s.cfg.EventLimit))
	if err != nil {
		return nil, err
	}

	s.enter(span, log, stateGatheringEvidence)
	var (
		items []evidence.Item
		vres  retrieval.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.gatherer.Gather(gctx, id.TenantID, jobID, s.cfg.EvidenceLimit)
		return err
	})
	g.Go(func() error {
		if s.retriever == nil {
			vres.Diagnostics.Skipped = "retriever_disabled"
			return nil
		}
		// Retrieve reports failures in its diagnostics only.
		vres, _ = s.retriever.Retrieve(gctx, msg, retrieval.Scope{TenantID: id.TenantID, JobID: jobID})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	t.diagnostics = vres.Diagnostics

	s.enter(span, log, stateResolvingConversation)
	history, err := s.resolveConversation(ctx, t, req.ConversationID)
	if err != nil {
		return nil, err
	}
	t.log = log.With("conversation_id", t.conversationID)
	span.SetAttributes(attribute.String("conversation.id", t.conversationID))

	t.input = chat.PromptInput{
		Snapshot: snap,
		Evidence: items,
		Chunks:   vres.Chunks,
		History:  history,
		Message:  msg,
	}
	return t, nil
}

// resolveConversation fills t.conversationID. A new conversation is only
// written together with the turn's messages.
func (s *AssistantService) resolveConversation(ctx context.Context, t *turn, requested string) ([]engine.Message, error) {
	dbc := dbctx.Context{Ctx: ctx}
	tenantID := t.identity.TenantID

	var conv *chatdomain.Conversation
	if requested = strings.TrimSpace(requested); requested != "" {
		found, err := s.conversations.FindByID(dbc, tenantID, requested)
		if err != nil {
			return nil, fmt.Errorf("find conversation: %w", err)
		}
		if found == nil {
			return nil, apperr.NotFound("conversation_not_found", "conversation %s not found", requested)
		}
		if found.JobID != t.jobID {
			return nil, apperr.NotFound("conversation_job_mismatch", "conversation %s does not belong to job %s", requested, t.jobID)
		}
		conv = found
	} else {
		found, err := s.conversations.FindLatest(dbc, tenantID, t.jobID, t.identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("find latest conversation: %w", err)
		}
		conv = found
	}

	if conv == nil {
		t.conversationID = uuid.New().String()
		t.newThread = true
		return nil, nil
	}
	t.conversationID = conv.ID

	if s.cfg.HistoryLimit <= 0 {
		return nil, nil
	}
	// One user and one assistant message per turn; the assembler trims by turn.
	rows, err := s.messages.ListRecent(dbc, tenantID, conv.ID, 2*s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]engine.Message, 0, len(rows))
	for _, m := range rows {
		history = append(history, engine.Message{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

func (s *AssistantService) finish(ctx context.Context, span trace.Span, t *turn, ans chat.Answer) (*ChatResult, error) {
	s.enter(span, t.log, statePersisting)
	userMsg, assistantMsg, err := s.persist(ctx, t, ans)
	if err != nil {
		return nil, err
	}
	s.enter(span, t.log, stateDone)
	t.log.Info("Assistant turn complete",
		"citations", len(ans.Citations),
		"evidence", len(t.input.Evidence),
		"vector_matches", len(t.input.Chunks),
		"filter_used", t.diagnostics.FilterUsed,
		"fallback_used", t.diagnostics.FallbackUsed,
		"malformed", ans.Malformed,
	)
	return &ChatResult{
		ConversationID:     t.conversationID,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
		Answer:             ans,
		Evidence:           t.input.Evidence,
		Chunks:             t.input.Chunks,
		Diagnostics:        t.diagnostics,
		PromptVersion:      s.orch.PromptVersion(),
		Model:              s.orch.Model(),
	}, nil
}

// persist writes both messages and bumps the conversation in one transaction.
// The assistant row is always stamped strictly after the user row.
func (s *AssistantService) persist(ctx context.Context, t *turn, ans chat.Answer) (*chatdomain.Message, *chatdomain.Message, error) {
	userAt := t.startedAt.Truncate(time.Microsecond)
	assistantAt := s.now().Truncate(time.Microsecond)
	if !assistantAt.After(userAt) {
		assistantAt = userAt.Add(time.Microsecond)
	}

	meta, err := json.Marshal(chatdomain.MessageMetadata{
		Citations:      ans.Citations,
		EvidenceDocIDs: evidenceDocIDs(t.input.Evidence, t.input.Chunks),
		FollowUps:      ans.FollowUps,
		FilterUsed:     t.diagnostics.FilterUsed,
		FallbackUsed:   t.diagnostics.FallbackUsed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode message metadata: %w", err)
	}

	base := chatdomain.Message{
		ConversationID: t.conversationID,
		TenantID:       t.identity.TenantID,
		JobID:          t.jobID,
		UserID:         t.identity.UserID,
	}
	userMsg := base
	userMsg.Role = chatdomain.RoleUser
	userMsg.Source = chatdomain.SourceTechnician
	userMsg.Content = t.message
	userMsg.CreatedAt = userAt

	assistantMsg := base
	assistantMsg.Role = chatdomain.RoleAssistant
	assistantMsg.Source = chatdomain.SourceAssistant
	assistantMsg.Content = ans.Text
	assistantMsg.Model = s.orch.Model()
	assistantMsg.PromptVersion = s.orch.PromptVersion()
	assistantMsg.Metadata = datatypes.JSON(meta)
	assistantMsg.CreatedAt = assistantAt

	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: txx}
		if t.newThread {
			if err := s.conversations.Ensure(inner, &chatdomain.Conversation{
				ID:             t.conversationID,
				TenantID:       t.identity.TenantID,
				JobID:          t.jobID,
				UserID:         t.identity.UserID,
				LastActivityAt: userAt,
			}); err != nil {
				return fmt.Errorf("ensure conversation: %w", err)
			}
		}
		if err := s.messages.Create(inner, &userMsg); err != nil {
			return fmt.Errorf("create user message: %w", err)
		}
		if err := s.messages.Create(inner, &assistantMsg); err != nil {
			return fmt.Errorf("create assistant message: %w", err)
		}
		if err := s.conversations.Touch(inner, t.identity.TenantID, t.conversationID, assistantAt); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &userMsg, &assistantMsg, nil
}

func (s *AssistantService) enter(span trace.Span, log *logger.Logger, st chatState) {
	log.Debug("Assistant state", "state", string(st))
	span.AddEvent("state", trace.WithAttributes(attribute.String("state", string(st))))
}

func (s *AssistantService) fail(span trace.Span, log *logger.Logger, err error) error {
	s.enter(span, log, stateFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, apperr.CodeOf(err))
	if errors.Is(err, context.Canceled) {
		log.Info("Assistant turn abandoned", "error", err)
	} else {
		log.Warn("Assistant turn failed", "error", err, "code", apperr.CodeOf(err))
	}
	return err
}

func evidenceDocIDs(items []evidence.Item, chunks []evidence.Chunk) []string {
	out := make([]string, 0, len(items)+len(chunks))
	for _, it := range items {
		out = append(out, it.DocID)
	}
	for _, c := range chunks {
		out = append(out, c.DocID)
	}
	return out
}
