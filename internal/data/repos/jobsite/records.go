package jobsite

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const maxListLimit = 500

// clampLimit maps limit <= 0 to no LIMIT clause (gorm treats -1 as unset).
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return -1
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

type EquipmentRepo interface {
	// ListByProperty returns every unit at the property, newest install first.
	ListByProperty(dbc dbctx.Context, tenantID, propertyID string) ([]*jobsite.Equipment, error)
}

type equipmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEquipmentRepo(db *gorm.DB, log *logger.Logger) EquipmentRepo {
	return &equipmentRepo{db: db, log: log.With("repo", "EquipmentRepo")}
}

func (r *equipmentRepo) ListByProperty(dbc dbctx.Context, tenantID, propertyID string) ([]*jobsite.Equipment, error) {
	if tenantID == "" || propertyID == "" {
		return nil, fmt.Errorf("missing tenant_id or property_id")
	}
	var out []*jobsite.Equipment
	if err := dbc.DB(r.db).
		Model(&jobsite.Equipment{}).
		Where("tenant_id = ? AND property_id = ?", tenantID, propertyID).
		Order("install_date IS NULL, install_date DESC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type JobEventRepo interface {
	ListByJob(dbc dbctx.Context, tenantID, jobID string, limit int) ([]*jobsite.JobEvent, error)
	ListByProperty(dbc dbctx.Context, tenantID, propertyID string, limit int) ([]*jobsite.JobEvent, error)
}

type jobEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobEventRepo(db *gorm.DB, log *logger.Logger) JobEventRepo {
	return &jobEventRepo{db: db, log: log.With("repo", "JobEventRepo")}
}

func (r *jobEventRepo) ListByJob(dbc dbctx.Context, tenantID, jobID string, limit int) ([]*jobsite.JobEvent, error) {
	if tenantID == "" || jobID == "" {
		return nil, fmt.Errorf("missing tenant_id or job_id")
	}
	return r.list(dbc, "tenant_id = ? AND job_id = ?", tenantID, jobID, limit)
}

func (r *jobEventRepo) ListByProperty(dbc dbctx.Context, tenantID, propertyID string, limit int) ([]*jobsite.JobEvent, error) {
	if tenantID == "" || propertyID == "" {
		return nil, fmt.Errorf("missing tenant_id or property_id")
	}
	return r.list(dbc, "tenant_id = ? AND property_id = ?", tenantID, propertyID, limit)
}

func (r *jobEventRepo) list(dbc dbctx.Context, where, tenantID, id string, limit int) ([]*jobsite.JobEvent, error) {
	var out []*jobsite.JobEvent
	if err := dbc.DB(r.db).
		Model(&jobsite.JobEvent{}).
		Where(where, tenantID, id).
		Order("created_at DESC, id ASC").
		Limit(clampLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type NoteRepo interface {
	ListByScope(dbc dbctx.Context, tenantID, scopeType, scopeID string, limit int) ([]*jobsite.Note, error)
}

type noteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, log *logger.Logger) NoteRepo {
	return &noteRepo{db: db, log: log.With("repo", "NoteRepo")}
}

func (r *noteRepo) ListByScope(dbc dbctx.Context, tenantID, scopeType, scopeID string, limit int) ([]*jobsite.Note, error) {
	if tenantID == "" || scopeType == "" || scopeID == "" {
		return nil, fmt.Errorf("missing tenant_id, scope_type or scope_id")
	}
	var out []*jobsite.Note
	if err := dbc.DB(r.db).
		Model(&jobsite.Note{}).
		Where("tenant_id = ? AND scope_type = ? AND scope_id = ?", tenantID, scopeType, scopeID).
		Order("created_at DESC, id ASC").
		Limit(clampLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type UserRepo interface {
	GetByIDs(dbc dbctx.Context, tenantID string, ids []string) ([]*jobsite.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return &userRepo{db: db, log: log.With("repo", "UserRepo")}
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, tenantID string, ids []string) ([]*jobsite.User, error) {
	if len(ids) == 0 {
		return []*jobsite.User{}, nil
	}
	if tenantID == "" {
		return nil, fmt.Errorf("missing tenant_id")
	}
	var out []*jobsite.User
	if err := dbc.DB(r.db).
		Model(&jobsite.User{}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
