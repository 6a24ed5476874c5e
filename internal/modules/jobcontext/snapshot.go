package jobcontext

import "time"

// Snapshot is a point-in-time view of one job. It is rebuilt per request and
// not modified after Build returns.
type Snapshot struct {
	Job          JobInfo         `json:"job"`
	Client       ClientInfo      `json:"client"`
	Property     PropertyInfo    `json:"property"`
	Equipment    []EquipmentInfo `json:"equipment"`
	RecentEvents []EventInfo     `json:"recent_events"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type JobInfo struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Status       string     `json:"status"`
	Summary      string     `json:"summary"`
	AssignedUser *UserInfo  `json:"assigned_user,omitempty"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type ClientInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type PropertyInfo struct {
	ID           string `json:"id"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	AccessNotes  string `json:"access_notes,omitempty"`
}

type EquipmentInfo struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Model        string     `json:"model,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	InstallDate  *time.Time `json:"install_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type EventInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// JobRef is the subset of a job the evidence fan-out needs.
type JobRef struct {
	TenantID   string
	JobID      string
	PropertyID string
	ClientID   string
}
