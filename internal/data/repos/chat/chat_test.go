package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jobassist-backend/internal/data/repos/testutil"
	"github.com/yungbote/jobassist-backend/internal/domain/chat"
	"github.com/yungbote/jobassist-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
)

func TestEnsureConversationIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	row := func() *chat.Conversation {
		return &chat.Conversation{ID: "conv-1", TenantID: "t1", JobID: "job-1", UserID: "u1"}
	}
	require.NoError(t, repo.Ensure(dbc, row()))
	require.NoError(t, repo.Ensure(dbc, row()))

	var count int64
	require.NoError(t, db.Model(&chat.Conversation{}).Where("id = ?", "conv-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEnsureConversationConcurrent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Ensure(dbctx.Context{Ctx: context.Background()}, &chat.Conversation{
				ID: "conv-race", TenantID: "t1", JobID: "job-1", UserID: "u1",
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	var count int64
	require.NoError(t, db.Model(&chat.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestTouchConversation(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	err := repo.Touch(dbc, "t1", "missing", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Ensure(dbc, &chat.Conversation{ID: "c1", TenantID: "t1", JobID: "j1", UserID: "u1", LastActivityAt: start}))

	// Tenant mismatch counts as unknown.
	assert.ErrorIs(t, repo.Touch(dbc, "t2", "c1", time.Now()), apperr.ErrNotFound)

	later := start.Add(time.Hour)
	require.NoError(t, repo.Touch(dbc, "t1", "c1", later))
	got, err := repo.FindByID(dbc, "t1", "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LastActivityAt.Equal(later))
}

func TestFindLatestPicksMostRecentlyActive(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Ensure(dbc, &chat.Conversation{ID: "old", TenantID: "t1", JobID: "j1", UserID: "u1", LastActivityAt: base}))
	require.NoError(t, repo.Ensure(dbc, &chat.Conversation{ID: "new", TenantID: "t1", JobID: "j1", UserID: "u1", LastActivityAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Ensure(dbc, &chat.Conversation{ID: "other-user", TenantID: "t1", JobID: "j1", UserID: "u2", LastActivityAt: base.Add(time.Hour)}))

	got, err := repo.FindLatest(dbc, "t1", "j1", "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ID)

	none, err := repo.FindLatest(dbc, "t2", "j1", "u1")
	require.NoError(t, err)
	assert.Nil(t, none)

	byID, err := repo.FindByID(dbc, "t2", "new")
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestMessagesHashAndOrder(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	contents := []string{"first", "second", "third", "fourth"}
	for i, content := range contents {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		require.NoError(t, repo.Create(dbc, &chat.Message{
			ConversationID: "c1", TenantID: "t1", JobID: "j1", UserID: "u1",
			Role: role, Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Create(dbc, &chat.Message{
		ConversationID: "c1", TenantID: "t2", JobID: "j1", UserID: "u1", Role: chat.RoleUser, Content: "leak",
	}))

	all, err := repo.ListByConversation(dbc, "t1", "c1")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, m := range all {
		assert.Equal(t, contents[i], m.Content)
		assert.Equal(t, chat.ContentHash(contents[i]), m.ContentHash)
		assert.NotEmpty(t, m.ID)
	}

	recent, err := repo.ListRecent(dbc, "t1", "c1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Content)
	assert.Equal(t, "fourth", recent[1].Content)

	assert.Error(t, repo.Create(dbc, &chat.Message{ConversationID: "c1", TenantID: "t1", Role: "system"}))
}
