package evidence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	jobrepos "github.com/yungbote/jobassist-backend/internal/data/repos/jobsite"
	"github.com/yungbote/jobassist-backend/internal/data/repos/testutil"
	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
	"github.com/yungbote/jobassist-backend/internal/modules/jobcontext"
	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
)

var base = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func newAggregator(t *testing.T, db *gorm.DB) *Aggregator {
	t.Helper()
	log := testutil.Logger(t)
	builder := jobcontext.NewBuilder(jobrepos.NewJobRepo(db, log), jobrepos.NewEquipmentRepo(db, log), jobrepos.NewJobEventRepo(db, log), log)
	return NewAggregator(builder, jobrepos.NewJobEventRepo(db, log), jobrepos.NewNoteRepo(db, log), jobrepos.NewUserRepo(db, log), log)
}

// seedTwoTenants gives tenant-a and tenant-b identical entity ids for the
// property and client so tenant filtering is the only thing separating them.
func seedTwoTenants(t *testing.T, db *gorm.DB) testutil.Fixture {
	t.Helper()
	fx := testutil.SeedJob(t, db, "tenant-a", "job-1")
	author := fx.User.ID

	testutil.Create(t, db,
		&jobsite.JobEvent{ID: "a-ev-job", TenantID: "tenant-a", JobID: "job-1", PropertyID: fx.Property.ID, EventType: "diagnosis", Body: "low suction pressure", AuthorUserID: &author, CreatedAt: at(5)},
		&jobsite.JobEvent{ID: "a-ev-prop", TenantID: "tenant-a", JobID: "job-0", PropertyID: fx.Property.ID, EventType: "repair", Body: "replaced contactor", CreatedAt: at(1)},
		&jobsite.Note{ID: "a-note-job", TenantID: "tenant-a", ScopeType: "job", ScopeID: "job-1", Body: "customer reports icing", CreatedAt: at(4)},
		&jobsite.Note{ID: "a-note-prop", TenantID: "tenant-a", ScopeType: "property", ScopeID: fx.Property.ID, Body: "ladder required", CreatedAt: at(3)},
		&jobsite.Note{ID: "a-note-client", TenantID: "tenant-a", ScopeType: "client", ScopeID: fx.Client.ID, Body: "net-30 billing", CreatedAt: at(2)},

		// Same scope ids, different tenant.
		&jobsite.JobEvent{ID: "b-ev-job", TenantID: "tenant-b", JobID: "job-1", PropertyID: fx.Property.ID, Body: "B event", CreatedAt: at(9)},
		&jobsite.Note{ID: "b-note-job", TenantID: "tenant-b", ScopeType: "job", ScopeID: "job-1", Body: "B job note", CreatedAt: at(9)},
		&jobsite.Note{ID: "b-note-prop", TenantID: "tenant-b", ScopeType: "property", ScopeID: fx.Property.ID, Body: "B prop note", CreatedAt: at(9)},
		&jobsite.Note{ID: "b-note-client", TenantID: "tenant-b", ScopeType: "client", ScopeID: fx.Client.ID, Body: "B client note", CreatedAt: at(9)},
	)
	return fx
}

func TestGatherMergesAllFacetsNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	seedTwoTenants(t, db)
	agg := newAggregator(t, db)

	items, err := agg.Gather(context.Background(), "tenant-a", "job-1", 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.DocID)
	}
	assert.Equal(t, []string{"a-ev-job", "a-note-job", "a-note-prop", "a-note-client", "a-ev-prop"}, ids)

	assert.Equal(t, evidence.ScopeJob, items[0].Scope)
	assert.Equal(t, evidence.KindJobEvent, items[0].Kind)
	assert.Equal(t, "diagnosis: low suction pressure", items[0].Text)
	assert.Equal(t, "Dana Tech", items[0].AuthorName)
	assert.Equal(t, evidence.ScopeProperty, items[4].Scope)
	assert.Equal(t, evidence.ScopeClient, items[3].Scope)
}

func TestGatherNeverCrossesTenants(t *testing.T) {
	db := testutil.DB(t)
	seedTwoTenants(t, db)
	agg := newAggregator(t, db)

	items, err := agg.Gather(context.Background(), "tenant-a", "job-1", 0)
	require.NoError(t, err)
	for _, it := range items {
		assert.NotContains(t, it.DocID, "b-", "tenant-b evidence leaked: %s", it.DocID)
	}
}

func TestGatherCapsAfterSorting(t *testing.T) {
	db := testutil.DB(t)
	seedTwoTenants(t, db)
	agg := newAggregator(t, db)

	items, err := agg.Gather(context.Background(), "tenant-a", "job-1", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a-ev-job", items[0].DocID)
	assert.Equal(t, "a-note-job", items[1].DocID)
}

func TestGatherWithoutLimitKeepsEveryRow(t *testing.T) {
	db := testutil.DB(t)
	testutil.SeedJob(t, db, "tenant-a", "job-1")
	const seeded = minFacetLimit + 5
	for i := 0; i < seeded; i++ {
		testutil.Create(t, db, &jobsite.Note{
			ID: fmt.Sprintf("note-%02d", i), TenantID: "tenant-a", ScopeType: "job", ScopeID: "job-1",
			Body: fmt.Sprintf("visit %d", i), CreatedAt: at(i),
		})
	}
	agg := newAggregator(t, db)

	items, err := agg.Gather(context.Background(), "tenant-a", "job-1", 0)
	require.NoError(t, err)
	require.Len(t, items, seeded)
	assert.Equal(t, fmt.Sprintf("note-%02d", seeded-1), items[0].DocID)
	assert.Equal(t, "note-00", items[seeded-1].DocID)

	capped, err := agg.Gather(context.Background(), "tenant-a", "job-1", 3)
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}

func TestGatherUnknownJob(t *testing.T) {
	db := testutil.DB(t)
	seedTwoTenants(t, db)
	agg := newAggregator(t, db)

	for _, tenant := range []string{"tenant-a", "tenant-b"} {
		_, err := agg.Gather(context.Background(), tenant, fmt.Sprintf("missing-%s", tenant), 5)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
}
