package jobsite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jobassist-backend/internal/data/repos/testutil"
	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
)

func TestJobRepoGetDetail(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	fx := testutil.SeedJob(t, db, "tenant-a", "job-1")
	testutil.SeedJob(t, db, "tenant-b", "job-2")

	repo := NewJobRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	got, err := repo.GetDetail(dbc, "tenant-a", "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fx.Job.Summary, got.Job.Summary)
	assert.Equal(t, "Acme Dental", got.Client.Name)
	assert.Equal(t, "12 Main St", got.Property.AddressLine1)
	require.NotNil(t, got.AssignedUser)
	assert.Equal(t, "Dana Tech", got.AssignedUser.Name)
	require.NotNil(t, got.Job.ScheduledAt)
	assert.True(t, fx.Job.ScheduledAt.Equal(*got.Job.ScheduledAt))

	cross, err := repo.GetDetail(dbc, "tenant-a", "job-2")
	require.NoError(t, err)
	assert.Nil(t, cross)

	missing, err := repo.GetDetail(dbc, "tenant-a", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJobRepoWithoutAssignedUser(t *testing.T) {
	db := testutil.DB(t)
	fx := testutil.SeedJob(t, db, "tenant-a", "job-1")
	require.NoError(t, db.Model(&jobsite.Job{}).Where("id = ?", fx.Job.ID).Update("assigned_user_id", nil).Error)

	got, err := NewJobRepo(db, testutil.Logger(t)).GetDetail(dbctx.Context{Ctx: context.Background()}, "tenant-a", "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.AssignedUser)
}

func TestEquipmentOrderedByInstallDateDesc(t *testing.T) {
	db := testutil.DB(t)
	fx := testutil.SeedJob(t, db, "tenant-a", "job-1")

	d := func(y int) *time.Time { v := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC); return &v }
	testutil.Create(t, db,
		&jobsite.Equipment{ID: "eq-old", TenantID: "tenant-a", PropertyID: fx.Property.ID, InstallDate: d(2012)},
		&jobsite.Equipment{ID: "eq-none", TenantID: "tenant-a", PropertyID: fx.Property.ID},
		&jobsite.Equipment{ID: "eq-new", TenantID: "tenant-a", PropertyID: fx.Property.ID, InstallDate: d(2021)},
		&jobsite.Equipment{ID: "eq-other-tenant", TenantID: "tenant-b", PropertyID: fx.Property.ID, InstallDate: d(2023)},
	)

	rows, err := NewEquipmentRepo(db, testutil.Logger(t)).ListByProperty(dbctx.Context{Ctx: context.Background()}, "tenant-a", fx.Property.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"eq-new", "eq-old", "eq-none"}, ids)
}

func TestJobEventsLimitedAndTenantScoped(t *testing.T) {
	db := testutil.DB(t)
	fx := testutil.SeedJob(t, db, "tenant-a", "job-1")

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"ev-1", "ev-2", "ev-3", "ev-4"} {
		testutil.Create(t, db, &jobsite.JobEvent{
			ID: id, TenantID: "tenant-a", JobID: fx.Job.ID, PropertyID: fx.Property.ID,
			EventType: "note", Body: id, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	testutil.Create(t, db, &jobsite.JobEvent{
		ID: "ev-leak", TenantID: "tenant-b", JobID: fx.Job.ID, PropertyID: fx.Property.ID,
		Body: "other tenant", CreatedAt: base.Add(10 * time.Hour),
	})

	repo := NewJobEventRepo(db, testutil.Logger(t))
	rows, err := repo.ListByJob(dbctx.Context{Ctx: context.Background()}, "tenant-a", fx.Job.ID, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ev-4", rows[0].ID)
	assert.Equal(t, "ev-3", rows[1].ID)
	assert.Equal(t, "ev-2", rows[2].ID)

	byProp, err := repo.ListByProperty(dbctx.Context{Ctx: context.Background()}, "tenant-a", fx.Property.ID, 0)
	require.NoError(t, err)
	for _, r := range byProp {
		assert.Equal(t, "tenant-a", r.TenantID)
	}
	assert.Len(t, byProp, 4)
}
