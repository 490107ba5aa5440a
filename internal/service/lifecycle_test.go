package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

func TestApplyTransitionTable(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	active := Flags{}
	hidden := Flags{IsHidden: true}
	deleted := Flags{IsDeleted: true}
	deletedHidden := Flags{IsDeleted: true, IsHidden: true}

	cases := []struct {
		name   string
		flags  Flags
		action models.Action
		to     models.LifecycleState
		ok     bool
	}{
		{"hide active", active, models.ActionHide, models.StateHidden, true},
		{"unhide hidden", hidden, models.ActionUnhide, models.StateActive, true},
		{"delete active", active, models.ActionDelete, models.StateDeleted, true},
		{"delete hidden", hidden, models.ActionDelete, models.StateDeleted, true},
		{"restore deleted", deleted, models.ActionRestore, models.StateActive, true},
		{"restore keeps hidden", deletedHidden, models.ActionRestore, models.StateHidden, true},
		{"purge deleted", deleted, models.ActionPurge, models.StatePurged, true},
		{"purge active", active, models.ActionPurge, models.StatePurged, true},
		{"hide deleted toggles flag", deleted, models.ActionHide, models.StateDeleted, true},
		{"hide hidden", hidden, models.ActionHide, "", false},
		{"unhide active", active, models.ActionUnhide, "", false},
		{"delete deleted", deleted, models.ActionDelete, "", false},
		{"restore active", active, models.ActionRestore, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := Apply(tc.flags, tc.action, now)
			if !tc.ok {
				assert.ErrorIs(t, err, appErrors.ErrIllegalTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, tr.To)
			assert.Equal(t, tc.flags.State(), tr.From)
		})
	}
}

func TestApplyDeleteAndRestorePatches(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 30, 0, 0, time.UTC)

	del, err := Apply(Flags{IsHidden: true}, models.ActionDelete, now)
	require.NoError(t, err)
	assert.Equal(t, true, del.Patch[repository.FieldIsDeleted])
	assert.Equal(t, now, del.Patch[repository.FieldDeletedAt])
	assert.NotContains(t, del.Patch, repository.FieldIsHidden)

	restore, err := Apply(Flags{IsDeleted: true, IsHidden: true}, models.ActionRestore, now)
	require.NoError(t, err)
	assert.Equal(t, false, restore.Patch[repository.FieldIsDeleted])
	assert.Equal(t, store.FieldDelete, restore.Patch[repository.FieldDeletedAt])
	assert.NotContains(t, restore.Patch, repository.FieldIsHidden)

	purge, err := Apply(Flags{IsDeleted: true}, models.ActionPurge, now)
	require.NoError(t, err)
	assert.True(t, purge.Purge)
	assert.Nil(t, purge.Patch)
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	_, err := Apply(Flags{}, models.Action("archive"), time.Now())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
