package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/pkg/config"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

const day = 24 * time.Hour

func TestRetentionSweepPurgesExpiredCollectionWithItems(t *testing.T) {
	e := newEngine(t, config.CascadeModeAtomic)
	ctx := context.Background()

	old := e.createCollection("u1", "Archive")
	for _, title := range []string{"a", "b", "c"} {
		e.createItem("u1", old, title)
	}
	recent := e.createCollection("u1", "Drafts")
	recentItem := e.createItem("u1", recent, "d")

	require.True(t, e.collSvc.Transition(ctx, "u1", old, models.ActionDelete).Success)
	e.clock.Advance(43 * day)
	require.True(t, e.collSvc.Transition(ctx, "u1", recent, models.ActionDelete).Success)
	e.clock.Advance(2 * day)

	before := e.collection("u1", recent)
	report, err := e.reaper.Sweep(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.CollectionsPurged)
	assert.Equal(t, 3, report.ItemsPurged)
	assert.Empty(t, report.Errors)
	assert.True(t, report.Cutoff.Equal(e.clock.Now().Add(-DefaultRetentionWindow)))

	_, err = e.collections.Get(ctx, "u1", old)
	assert.True(t, repository.IsNotFound(err))
	assert.Empty(t, e.itemsOf("u1", old))

	assert.Equal(t, before, e.collection("u1", recent))
	kept, err := e.items.Get(ctx, "u1", recent, recentItem)
	require.NoError(t, err)
	assert.True(t, kept.IsDeleted)

	report, err = e.reaper.Sweep(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, report.CollectionsPurged)
	assert.Zero(t, report.ItemsPurged)
}

func TestRetentionSweepExpiresItemsIndependently(t *testing.T) {
	e := newEngine(t, config.CascadeModeAtomic)
	ctx := context.Background()
	work := e.createCollection("u1", "Work")
	stale := e.createItem("u1", work, "stale")
	fresh := e.createItem("u1", work, "fresh")
	live := e.createItem("u1", work, "live")

	require.True(t, e.itemSvc.Transition(ctx, "u1", work, stale, models.ActionDelete).Success)
	e.clock.Advance(21 * day)
	require.True(t, e.itemSvc.Transition(ctx, "u1", work, fresh, models.ActionDelete).Success)
	e.clock.Advance(10 * day)

	report, err := e.reaper.Sweep(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.CollectionsPurged)
	assert.Equal(t, 1, report.ItemsPurged)

	_, err = e.items.Get(ctx, "u1", work, stale)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	for _, id := range []string{fresh, live} {
		_, err := e.items.Get(ctx, "u1", work, id)
		assert.NoError(t, err)
	}
	assert.False(t, e.collection("u1", work).IsDeleted)
}

func TestRetentionSweepLeavesOtherOwnersAlone(t *testing.T) {
	e := newEngine(t, config.CascadeModeAtomic)
	ctx := context.Background()
	mine := e.createCollection("u1", "Mine")
	theirs := e.createCollection("u2", "Theirs")
	require.True(t, e.collSvc.Transition(ctx, "u1", mine, models.ActionDelete).Success)
	require.True(t, e.collSvc.Transition(ctx, "u2", theirs, models.ActionDelete).Success)
	e.clock.Advance(40 * day)

	report, err := e.reaper.Sweep(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.CollectionsPurged)
	assert.True(t, e.collection("u2", theirs).IsDeleted)

	_, err = e.reaper.Sweep(ctx, "")
	assert.ErrorIs(t, err, appErrors.ErrAuthRequired)
}

func TestExpiredUsesStrictCutoff(t *testing.T) {
	cutoff := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	before := cutoff.Add(-time.Nanosecond)

	assert.True(t, expired(&before, cutoff))
	assert.False(t, expired(&cutoff, cutoff))
	assert.False(t, expired(nil, cutoff))
}

func TestRetentionSweepKeepsCollectionWhenItemPurgeFails(t *testing.T) {
	e := newEngine(t, config.CascadeModeAtomic)
	ctx := context.Background()
	stale := e.createCollection("u1", "Stale")
	first := e.createItem("u1", stale, "a")
	e.createItem("u1", stale, "b")
	require.True(t, e.collSvc.Transition(ctx, "u1", stale, models.ActionDelete).Success)
	e.clock.Advance(31 * day)

	e.store.setFailOn("/items/")
	report, err := e.reaper.Sweep(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, report.CollectionsPurged)
	assert.Zero(t, report.ItemsPurged)
	assert.Contains(t, report.Errors, "collection "+stale+" kept: 2 of 2 items were not purged")
	assert.Contains(t, report.Errors, "purge item "+first+": permission denied")

	_, err = e.collections.Get(ctx, "u1", stale)
	require.NoError(t, err)
	assert.Len(t, e.itemsOf("u1", stale), 2)

	e.store.setFailOn("")
	report, err = e.reaper.Sweep(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.CollectionsPurged)
	assert.Equal(t, 2, report.ItemsPurged)
	assert.Empty(t, report.Errors)
	_, err = e.collections.Get(ctx, "u1", stale)
	assert.True(t, repository.IsNotFound(err))
}
