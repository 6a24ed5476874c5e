package jobcontext

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	jobrepos "github.com/yungbote/jobassist-backend/internal/data/repos/jobsite"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const DefaultRecentEventLimit = 3

// Resolver is the job existence check shared by every entry point.
type Resolver interface {
	ResolveJob(ctx context.Context, tenantID, jobID string) (*JobRef, error)
}

type Builder struct {
	jobs      jobrepos.JobRepo
	equipment jobrepos.EquipmentRepo
	events    jobrepos.JobEventRepo
	log       *logger.Logger
	now       func() time.Time
}

func NewBuilder(jobs jobrepos.JobRepo, equipment jobrepos.EquipmentRepo, events jobrepos.JobEventRepo, log *logger.Logger) *Builder {
	return &Builder{
		jobs:      jobs,
		equipment: equipment,
		events:    events,
		log:       log.With("component", "JobContextBuilder"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type buildOptions struct {
	recentEventLimit int
}

type Option func(*buildOptions)

func WithRecentEventLimit(n int) Option {
	return func(o *buildOptions) {
		if n > 0 {
			o.recentEventLimit = n
		}
	}
}

func jobNotFound(jobID string) error {
	return apperr.NotFound("job_not_found", "job %s not found for tenant", jobID)
}

func (b *Builder) ResolveJob(ctx context.Context, tenantID, jobID string) (*JobRef, error) {
	detail, err := b.jobs.GetDetail(dbctx.Context{Ctx: ctx}, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if detail == nil {
		return nil, jobNotFound(jobID)
	}
	return &JobRef{
		TenantID:   tenantID,
		JobID:      detail.Job.ID,
		PropertyID: detail.Property.ID,
		ClientID:   detail.Client.ID,
	}, nil
}

func (b *Builder) Build(ctx context.Context, tenantID, jobID string, opts ...Option) (*Snapshot, error) {
	o := buildOptions{recentEventLimit: DefaultRecentEventLimit}
	for _, fn := range opts {
		fn(&o)
	}

	ctx, span := otel.Tracer("jobassist/jobcontext").Start(ctx, "jobcontext.build")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	dbc := dbctx.Context{Ctx: ctx}
	detail, err := b.jobs.GetDetail(dbc, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if detail == nil {
		return nil, jobNotFound(jobID)
	}

	equipment, err := b.equipment.ListByProperty(dbc, tenantID, detail.Property.ID)
	if err != nil {
		return nil, fmt.Errorf("load equipment: %w", err)
	}
	events, err := b.events.ListByJob(dbc, tenantID, detail.Job.ID, o.recentEventLimit)
	if err != nil {
		return nil, fmt.Errorf("load job events: %w", err)
	}

	snap := &Snapshot{
		Job: JobInfo{
			ID:          detail.Job.ID,
			Type:        detail.Job.JobType,
			ScheduledAt: detail.Job.ScheduledAt,
			Status:      detail.Job.Status,
			Summary:     detail.Job.Summary,
		},
		Client: ClientInfo{
			ID:    detail.Client.ID,
			Name:  detail.Client.Name,
			Type:  detail.Client.ClientType,
			Phone: detail.Client.Phone,
			Email: detail.Client.Email,
		},
		Property: PropertyInfo{
			ID:           detail.Property.ID,
			AddressLine1: detail.Property.AddressLine1,
			AddressLine2: detail.Property.AddressLine2,
			City:         detail.Property.City,
			State:        detail.Property.State,
			PostalCode:   detail.Property.PostalCode,
			AccessNotes:  detail.Property.AccessNotes,
		},
		Equipment:    make([]EquipmentInfo, 0, len(equipment)),
		RecentEvents: make([]EventInfo, 0, len(events)),
		GeneratedAt:  b.now(),
	}
	if u := detail.AssignedUser; u != nil {
		snap.Job.AssignedUser = &UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	for _, eq := range equipment {
		snap.Equipment = append(snap.Equipment, EquipmentInfo{
			ID:           eq.ID,
			Type:         eq.EquipmentType,
			Manufacturer: eq.Manufacturer,
			Model:        eq.Model,
			SerialNumber: eq.SerialNumber,
			InstallDate:  eq.InstallDate,
			Notes:        eq.Notes,
		})
	}
	for _, ev := range events {
		snap.RecentEvents = append(snap.RecentEvents, EventInfo{
			ID:        ev.ID,
			Type:      ev.EventType,
			Body:      ev.Body,
			CreatedAt: ev.CreatedAt,
		})
	}

	b.log.Debug("Built job snapshot",
		"job_id", jobID,
		"equipment", len(snap.Equipment),
		"recent_events", len(snap.RecentEvents),
	)
	return snap, nil
}
