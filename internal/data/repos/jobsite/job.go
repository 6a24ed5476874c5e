package jobsite

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

// JobDetail is a job joined with the rows it references.
type JobDetail struct {
	Job          jobsite.Job
	Client       jobsite.Client
	Property     jobsite.Property
	AssignedUser *jobsite.User
}

type JobRepo interface {
	// GetDetail returns nil, nil when no job matches (tenantID, jobID).
	GetDetail(dbc dbctx.Context, tenantID, jobID string) (*JobDetail, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, log *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: log.With("repo", "JobRepo")}
}

type jobDetailRow struct {
	JobID          string
	TenantID       string
	AssignedUserID *string
	JobType        string
	ScheduledAt    *time.Time
	Status         string
	Summary        string

	ClientID    string
	ClientName  string
	ClientType  string
	ClientPhone string
	ClientEmail string

	PropertyID   string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	AccessNotes  string

	UserID    *string
	UserName  *string
	UserEmail *string
}

func (r *jobRepo) GetDetail(dbc dbctx.Context, tenantID, jobID string) (*JobDetail, error) {
	tenantID = strings.TrimSpace(tenantID)
	jobID = strings.TrimSpace(jobID)
	if tenantID == "" || jobID == "" {
		return nil, fmt.Errorf("missing tenant_id or job_id")
	}

	var rows []jobDetailRow
	err := dbc.DB(r.db).
		Table("job AS j").
		Select(strings.Join([]string{
			"j.id AS job_id",
			"j.tenant_id AS tenant_id",
			"j.assigned_user_id AS assigned_user_id",
			"j.job_type AS job_type",
			"j.scheduled_at AS scheduled_at",
			"j.status AS status",
			"j.summary AS summary",
			"c.id AS client_id",
			"c.name AS client_name",
			"c.client_type AS client_type",
			"c.phone AS client_phone",
			"c.email AS client_email",
			"p.id AS property_id",
			"p.address_line1 AS address_line1",
			"p.address_line2 AS address_line2",
			"p.city AS city",
			"p.state AS state",
			"p.postal_code AS postal_code",
			"p.access_notes AS access_notes",
			"u.id AS user_id",
			"u.name AS user_name",
			"u.email AS user_email",
		}, ", ")).
		Joins("JOIN client AS c ON c.id = j.client_id AND c.tenant_id = j.tenant_id").
		Joins("JOIN property AS p ON p.id = j.property_id AND p.tenant_id = j.tenant_id").
		Joins("LEFT JOIN app_user AS u ON u.id = j.assigned_user_id AND u.tenant_id = j.tenant_id").
		Where("j.tenant_id = ? AND j.id = ?", tenantID, jobID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDetail(), nil
}

func (row jobDetailRow) toDetail() *JobDetail {
	out := &JobDetail{
		Job: jobsite.Job{
			ID:             row.JobID,
			TenantID:       row.TenantID,
			ClientID:       row.ClientID,
			PropertyID:     row.PropertyID,
			AssignedUserID: row.AssignedUserID,
			JobType:        row.JobType,
			ScheduledAt:    row.ScheduledAt,
			Status:         row.Status,
			Summary:        row.Summary,
		},
		Client: jobsite.Client{
			ID:         row.ClientID,
			TenantID:   row.TenantID,
			Name:       row.ClientName,
			ClientType: row.ClientType,
			Phone:      row.ClientPhone,
			Email:      row.ClientEmail,
		},
		Property: jobsite.Property{
			ID:           row.PropertyID,
			TenantID:     row.TenantID,
			ClientID:     row.ClientID,
			AddressLine1: row.AddressLine1,
			AddressLine2: row.AddressLine2,
			City:         row.City,
			State:        row.State,
			PostalCode:   row.PostalCode,
			AccessNotes:  row.AccessNotes,
		},
	}
	if row.UserID != nil && *row.UserID != "" {
		u := &jobsite.User{ID: *row.UserID, TenantID: row.TenantID}
		if row.UserName != nil {
			u.Name = *row.UserName
		}
		if row.UserEmail != nil {
			u.Email = *row.UserEmail
		}
		out.AssignedUser = u
	}
	return out
}
