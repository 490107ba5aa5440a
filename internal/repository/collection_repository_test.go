package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/store"
	"github.com/noah-isme/notevault-api/internal/store/memory"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore() (*memory.Store, *testClock) {
	clock := &testClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	return memory.New(memory.WithClock(clock.Now)), clock
}

func nextSnapshot[T any](t *testing.T, s *Stream[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-s.Updates():
		require.True(t, ok, "stream closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func TestCollectionUpsertAppliesDefaults(t *testing.T) {
	st, clock := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	c := &models.Collection{Name: "Work"}
	res := repo.Upsert(ctx, "u1", c)
	require.True(t, res.Success, res.Message)
	require.NotEmpty(t, c.ID)
	assert.Equal(t, c.ID, res.ID)

	got, err := repo.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", got.Name)
	assert.Equal(t, models.DefaultColor, got.Color)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, got.CreatedAt.Equal(clock.now))
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)
	assert.Empty(t, got.PasswordHash)
}

func TestCollectionUpsertRequiresOwner(t *testing.T) {
	st, _ := newTestStore()
	repo := NewCollectionRepository(st, "", nil)

	res := repo.Upsert(context.Background(), "", &models.Collection{Name: "Work"})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, appErrors.ErrAuthRequired)
	assert.Equal(t, 0, st.Len())
}

func TestCollectionGetMissingIsNotFound(t *testing.T) {
	st, _ := newTestStore()
	repo := NewCollectionRepository(st, "", nil)

	_, err := repo.Get(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestCollectionPurgeIsIdempotent(t *testing.T) {
	st, _ := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	c := &models.Collection{Name: "Work"}
	require.True(t, repo.Upsert(ctx, "u1", c).Success)

	require.NoError(t, repo.Purge(ctx, "u1", c.ID))
	require.NoError(t, repo.Purge(ctx, "u1", c.ID))
	_, err := repo.Get(ctx, "u1", c.ID)
	assert.True(t, IsNotFound(err))
}

func TestCollectionSubscribeActiveNewestFirst(t *testing.T) {
	st, clock := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	require.True(t, repo.Upsert(ctx, "u1", &models.Collection{Name: "Personal"}).Success)
	clock.Advance(time.Minute)
	require.True(t, repo.Upsert(ctx, "u1", &models.Collection{Name: "Hidden", IsHidden: true}).Success)

	stream, err := repo.SubscribeActive(ctx, "u1")
	require.NoError(t, err)
	defer stream.Cancel()

	snap := nextSnapshot(t, stream)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "Personal", snap.Entries[0].Name)

	clock.Advance(time.Minute)
	require.True(t, repo.Upsert(ctx, "u1", &models.Collection{Name: "Work", Color: "#4ECDC4"}).Success)

	snap = nextSnapshot(t, stream)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "Work", snap.Entries[0].Name)
	for _, c := range snap.Entries {
		assert.False(t, c.IsDeleted)
		assert.False(t, c.IsHidden)
	}
}

func TestCollectionHiddenStreamIncludesDeleted(t *testing.T) {
	st, clock := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	deletedAt := clock.now
	c := &models.Collection{Name: "Secret", IsHidden: true, IsDeleted: true, DeletedAt: &deletedAt}
	require.True(t, repo.Upsert(ctx, "u1", c).Success)

	hidden, err := repo.SubscribeHidden(ctx, "u1")
	require.NoError(t, err)
	defer hidden.Cancel()
	deleted, err := repo.SubscribeDeleted(ctx, "u1")
	require.NoError(t, err)
	defer deleted.Cancel()

	h := nextSnapshot(t, hidden)
	d := nextSnapshot(t, deleted)
	require.Len(t, h.Entries, 1)
	require.Len(t, d.Entries, 1)
	assert.Equal(t, c.ID, h.Entries[0].ID)
	assert.Equal(t, c.ID, d.Entries[0].ID)
}

func TestCollectionUpdateFlagsRemovesFields(t *testing.T) {
	st, _ := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	c := &models.Collection{Name: "Work", IsLocked: true, PasswordHash: "abcd"}
	require.True(t, repo.Upsert(ctx, "u1", c).Success)

	require.NoError(t, repo.UpdateFlags(ctx, "u1", c.ID, store.Fields{
		FieldIsLocked:     false,
		FieldPasswordHash: store.FieldDelete,
	}))
	got, err := repo.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLocked)
	assert.Empty(t, got.PasswordHash)

	err = repo.UpdateFlags(ctx, "u1", "missing", store.Fields{FieldIsHidden: true})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCollectionUpdateContentLeavesFlags(t *testing.T) {
	st, _ := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	c := &models.Collection{Name: "Work", Color: "#45B7D1", IsHidden: true, IsLocked: true, PasswordHash: "abcd"}
	require.True(t, repo.Upsert(ctx, "u1", c).Success)

	require.NoError(t, repo.UpdateContent(ctx, "u1", c.ID, "Personal", ""))
	got, err := repo.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Personal", got.Name)
	assert.Equal(t, "#45B7D1", got.Color)
	assert.True(t, got.IsHidden)
	assert.True(t, got.IsLocked)
	assert.Equal(t, "abcd", got.PasswordHash)

	require.NoError(t, repo.UpdateContent(ctx, "u1", c.ID, "Personal", "#f7dc6f"))
	got, err = repo.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "#F7DC6F", got.Color)

	err = repo.UpdateContent(ctx, "u1", "missing", "Ghost", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStreamCancelClosesUpdates(t *testing.T) {
	st, _ := newTestStore()
	repo := NewCollectionRepository(st, "", nil)
	ctx := context.Background()

	stream, err := repo.SubscribeActive(ctx, "u1")
	require.NoError(t, err)
	nextSnapshot(t, stream)

	stream.Cancel()
	require.True(t, repo.Upsert(ctx, "u1", &models.Collection{Name: "After"}).Success)

	_, open := <-stream.Updates()
	assert.False(t, open)
}
