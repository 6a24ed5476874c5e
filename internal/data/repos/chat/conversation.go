package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/jobassist-backend/internal/domain/chat"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type ConversationRepo interface {
	// FindLatest returns the most recently active conversation for the
	// triple, or nil when there is none.
	FindLatest(dbc dbctx.Context, tenantID, jobID, userID string) (*chat.Conversation, error)
	// FindByID returns nil when id does not exist for tenantID.
	FindByID(dbc dbctx.Context, tenantID, id string) (*chat.Conversation, error)
	// Ensure inserts row unless a row with the same id exists. Repeated and
	// concurrent calls are safe.
	Ensure(dbc dbctx.Context, row *chat.Conversation) error
	// Touch bumps last_activity_at; exactly one row must match.
	Touch(dbc dbctx.Context, tenantID, id string, at time.Time) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) FindLatest(dbc dbctx.Context, tenantID, jobID, userID string) (*chat.Conversation, error) {
	if tenantID == "" || jobID == "" || userID == "" {
		return nil, fmt.Errorf("missing tenant_id, job_id or user_id")
	}
	var rows []*chat.Conversation
	if err := dbc.DB(r.db).
		Model(&chat.Conversation{}).
		Where("tenant_id = ? AND job_id = ? AND user_id = ?", tenantID, jobID, userID).
		Order("last_activity_at DESC, id ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *conversationRepo) FindByID(dbc dbctx.Context, tenantID, id string) (*chat.Conversation, error) {
	tenantID = strings.TrimSpace(tenantID)
	id = strings.TrimSpace(id)
	if tenantID == "" || id == "" {
		return nil, nil
	}
	var row chat.Conversation
	err := dbc.DB(r.db).
		Model(&chat.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *conversationRepo) Ensure(dbc dbctx.Context, row *chat.Conversation) error {
	if row == nil || row.ID == "" {
		return fmt.Errorf("missing conversation id")
	}
	if row.TenantID == "" || row.JobID == "" || row.UserID == "" {
		return fmt.Errorf("conversation %s: missing tenant_id, job_id or user_id", row.ID)
	}
	if row.LastActivityAt.IsZero() {
		row.LastActivityAt = time.Now().UTC()
	}

	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			r.log.Debug("Conversation already exists", "conversation_id", row.ID)
			return nil
		}
		return res.Error
	}
	if res.RowsAffected > 1 {
		return apperr.Invariant("conversation_insert_rows", "ensure conversation %s affected %d rows", row.ID, res.RowsAffected)
	}
	return nil
}

func (r *conversationRepo) Touch(dbc dbctx.Context, tenantID, id string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&chat.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"last_activity_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.NotFound("conversation_not_found", "touch conversation %s: %d rows affected", id, res.RowsAffected)
	}
	return nil
}
