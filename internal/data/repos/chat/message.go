package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/jobassist-backend/internal/domain/chat"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type MessageRepo interface {
	// Create appends row, filling id, content hash and created_at.
	Create(dbc dbctx.Context, row *chat.Message) error
	// ListByConversation returns the full history, oldest first.
	ListByConversation(dbc dbctx.Context, tenantID, conversationID string) ([]*chat.Message, error)
	// ListRecent returns the newest n messages, oldest first.
	ListRecent(dbc dbctx.Context, tenantID, conversationID string, n int) ([]*chat.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, row *chat.Message) error {
	if row == nil {
		return fmt.Errorf("nil message")
	}
	if row.ConversationID == "" || row.TenantID == "" {
		return fmt.Errorf("missing conversation_id or tenant_id")
	}
	if row.Role != chat.RoleUser && row.Role != chat.RoleAssistant {
		return fmt.Errorf("invalid role %q", row.Role)
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if len(row.Metadata) == 0 {
		row.Metadata = datatypes.JSON([]byte("{}"))
	}
	row.ContentHash = chat.ContentHash(row.Content)

	return dbc.DB(r.db).Create(row).Error
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, tenantID, conversationID string) ([]*chat.Message, error) {
	if tenantID == "" || conversationID == "" {
		return nil, fmt.Errorf("missing tenant_id or conversation_id")
	}
	var out []*chat.Message
	if err := dbc.DB(r.db).
		Model(&chat.Message{}).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListRecent(dbc dbctx.Context, tenantID, conversationID string, n int) ([]*chat.Message, error) {
	if tenantID == "" || conversationID == "" {
		return nil, fmt.Errorf("missing tenant_id or conversation_id")
	}
	if n <= 0 {
		return []*chat.Message{}, nil
	}
	var out []*chat.Message
	if err := dbc.DB(r.db).
		Model(&chat.Message{}).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
