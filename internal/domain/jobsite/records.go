package jobsite

import "time"

type Equipment struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	TenantID      string     `gorm:"type:text;not null;index:idx_equipment_property,priority:1" json:"tenant_id"`
	PropertyID    string     `gorm:"type:text;not null;index:idx_equipment_property,priority:2" json:"property_id"`
	EquipmentType string     `gorm:"column:equipment_type;not null;default:''" json:"equipment_type"`
	Manufacturer  string     `gorm:"column:manufacturer;not null;default:''" json:"manufacturer"`
	Model         string     `gorm:"column:model;not null;default:''" json:"model"`
	SerialNumber  string     `gorm:"column:serial_number;not null;default:''" json:"serial_number"`
	InstallDate   *time.Time `gorm:"column:install_date" json:"install_date,omitempty"`
	Notes         string     `gorm:"column:notes;type:text;not null;default:''" json:"notes"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Equipment) TableName() string { return "equipment" }

// JobEvent is a timeline entry (arrival, diagnosis, part installed, ...).
// PropertyID is denormalized so property-wide history can be read without
// joining through job.
type JobEvent struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	TenantID     string    `gorm:"type:text;not null;index:idx_job_event_job,priority:1;index:idx_job_event_property,priority:1" json:"tenant_id"`
	JobID        string    `gorm:"type:text;not null;index:idx_job_event_job,priority:2" json:"job_id"`
	PropertyID   string    `gorm:"type:text;not null;index:idx_job_event_property,priority:2" json:"property_id"`
	EventType    string    `gorm:"column:event_type;not null;default:''" json:"event_type"`
	Body         string    `gorm:"column:body;type:text;not null;default:''" json:"body"`
	AuthorUserID *string   `gorm:"type:text" json:"author_user_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func (JobEvent) TableName() string { return "job_event" }

const (
	NoteScopeJob      = "job"
	NoteScopeProperty = "property"
	NoteScopeClient   = "client"
)

type Note struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	TenantID     string    `gorm:"type:text;not null;index:idx_note_scope,priority:1" json:"tenant_id"`
	ScopeType    string    `gorm:"column:scope_type;not null;index:idx_note_scope,priority:2" json:"scope_type"`
	ScopeID      string    `gorm:"type:text;column:scope_id;not null;index:idx_note_scope,priority:3" json:"scope_id"`
	Body         string    `gorm:"column:body;type:text;not null;default:''" json:"body"`
	AuthorUserID *string   `gorm:"type:text" json:"author_user_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func (Note) TableName() string { return "note" }
