package chat

import "time"

// Conversation groups the assistant turns one technician has on one job.
// JobID never changes after insert.
type Conversation struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	TenantID       string    `gorm:"type:text;not null;index:idx_ai_conversation_lookup,priority:1" json:"tenant_id"`
	JobID          string    `gorm:"type:text;not null;index:idx_ai_conversation_lookup,priority:2" json:"job_id"`
	UserID         string    `gorm:"type:text;not null;index:idx_ai_conversation_lookup,priority:3" json:"user_id"`
	LastActivityAt time.Time `gorm:"column:last_activity_at;not null;index:idx_ai_conversation_lookup,priority:4" json:"last_activity_at"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string { return "ai_conversation" }
