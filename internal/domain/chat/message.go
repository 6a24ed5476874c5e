package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	SourceTechnician = "technician"
	SourceAssistant  = "assistant"
)

// Message rows are append-only.
type Message struct {
	ID             string         `gorm:"type:text;primaryKey" json:"id"`
	ConversationID string         `gorm:"type:text;not null;index:idx_ai_message_conversation,priority:1" json:"conversation_id"`
	TenantID       string         `gorm:"type:text;not null;index" json:"tenant_id"`
	JobID          string         `gorm:"type:text;not null;index" json:"job_id"`
	UserID         string         `gorm:"type:text;not null" json:"user_id"`
	Role           string         `gorm:"column:role;not null" json:"role"`
	Content        string         `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Source         string         `gorm:"column:source;not null;default:''" json:"source"`
	Model          string         `gorm:"column:model;not null;default:''" json:"model,omitempty"`
	PromptVersion  string         `gorm:"column:prompt_version;not null;default:''" json:"prompt_version,omitempty"`
	Metadata       datatypes.JSON `gorm:"column:metadata;not null;default:'{}'" json:"metadata,omitempty"`
	ContentHash    string         `gorm:"column:content_hash;not null" json:"content_hash"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_ai_message_conversation,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "ai_message" }

// MessageMetadata is what ends up in Message.Metadata.
type MessageMetadata struct {
	Citations      []evidence.Citation `json:"citations,omitempty"`
	EvidenceDocIDs []string            `json:"evidence_doc_ids,omitempty"`
	FollowUps      []string            `json:"follow_ups,omitempty"`
	FilterUsed     string              `json:"filter_used,omitempty"`
	FallbackUsed   bool                `json:"fallback_used,omitempty"`
}

// ContentHash is the hex SHA-256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
