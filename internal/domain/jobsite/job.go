package jobsite

import "time"

// Job is a scheduled service visit. Rows are owned by the scheduling service;
// this module only reads them.
type Job struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	TenantID       string     `gorm:"type:text;not null;index:idx_job_tenant,priority:1" json:"tenant_id"`
	ClientID       string     `gorm:"type:text;not null;index" json:"client_id"`
	PropertyID     string     `gorm:"type:text;not null;index" json:"property_id"`
	AssignedUserID *string    `gorm:"type:text;index" json:"assigned_user_id,omitempty"`
	JobType        string     `gorm:"column:job_type;not null;default:''" json:"job_type"`
	ScheduledAt    *time.Time `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	Status         string     `gorm:"column:status;not null;default:''" json:"status"`
	Summary        string     `gorm:"column:summary;type:text;not null;default:''" json:"summary"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string { return "job" }

type Client struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	TenantID   string    `gorm:"type:text;not null;index" json:"tenant_id"`
	Name       string    `gorm:"column:name;not null;default:''" json:"name"`
	ClientType string    `gorm:"column:client_type;not null;default:''" json:"client_type"`
	Phone      string    `gorm:"column:phone;not null;default:''" json:"phone"`
	Email      string    `gorm:"column:email;not null;default:''" json:"email"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Client) TableName() string { return "client" }

type Property struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	TenantID     string    `gorm:"type:text;not null;index" json:"tenant_id"`
	ClientID     string    `gorm:"type:text;not null;index" json:"client_id"`
	AddressLine1 string    `gorm:"column:address_line1;not null;default:''" json:"address_line1"`
	AddressLine2 string    `gorm:"column:address_line2;not null;default:''" json:"address_line2"`
	City         string    `gorm:"column:city;not null;default:''" json:"city"`
	State        string    `gorm:"column:state;not null;default:''" json:"state"`
	PostalCode   string    `gorm:"column:postal_code;not null;default:''" json:"postal_code"`
	AccessNotes  string    `gorm:"column:access_notes;type:text;not null;default:''" json:"access_notes"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Property) TableName() string { return "property" }

type User struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	TenantID  string    `gorm:"type:text;not null;index" json:"tenant_id"`
	Name      string    `gorm:"column:name;not null;default:''" json:"name"`
	Email     string    `gorm:"column:email;not null;default:''" json:"email"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (User) TableName() string { return "app_user" }
