package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// Flags are the stored lifecycle flags of a collection or item.
type Flags struct {
	IsDeleted bool
	IsHidden  bool
}

// State derives the lifecycle state.
func (f Flags) State() models.LifecycleState {
	return models.Derive(f.IsDeleted, f.IsHidden)
}

// Transition is a planned lifecycle change. Purge transitions carry no patch;
// the document is removed instead.
type Transition struct {
	Action models.Action
	From   models.LifecycleState
	To     models.LifecycleState
	Patch  store.Fields
	Purge  bool
}

// Apply plans action against an entity carrying flags. deletedAt is set to now
// on delete so a cascade writes the identical instant to every item.
//
// hide and unhide only toggle isHidden and are accepted on deleted entities;
// restore leaves isHidden untouched; purge is accepted from any stored state.
func Apply(flags Flags, action models.Action, now time.Time) (Transition, error) {
	from := flags.State()
	t := Transition{Action: action, From: from}

	switch action {
	case models.ActionHide:
		if flags.IsHidden {
			return Transition{}, illegal(from, action)
		}
		t.Patch = store.Fields{repository.FieldIsHidden: true}
		t.To = models.Derive(flags.IsDeleted, true)
	case models.ActionUnhide:
		if !flags.IsHidden {
			return Transition{}, illegal(from, action)
		}
		t.Patch = store.Fields{repository.FieldIsHidden: false}
		t.To = models.Derive(flags.IsDeleted, false)
	case models.ActionDelete:
		if flags.IsDeleted {
			return Transition{}, illegal(from, action)
		}
		t.Patch = store.Fields{
			repository.FieldIsDeleted: true,
			repository.FieldDeletedAt: now.UTC(),
		}
		t.To = models.StateDeleted
	case models.ActionRestore:
		if !flags.IsDeleted {
			return Transition{}, illegal(from, action)
		}
		t.Patch = store.Fields{
			repository.FieldIsDeleted: false,
			repository.FieldDeletedAt: store.FieldDelete,
		}
		t.To = models.Derive(false, flags.IsHidden)
	case models.ActionPurge:
		t.Purge = true
		t.To = models.StatePurged
	default:
		return Transition{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", action))
	}
	return t, nil
}

func illegal(from models.LifecycleState, action models.Action) error {
	return appErrors.Clone(appErrors.ErrIllegalTransition, fmt.Sprintf("cannot %s an entity in state %s", action, from))
}

func pastTense(action models.Action) string {
	switch action {
	case models.ActionHide:
		return "hidden"
	case models.ActionUnhide:
		return "unhidden"
	case models.ActionDelete:
		return "moved to recycle bin"
	case models.ActionRestore:
		return "restored"
	case models.ActionPurge:
		return "permanently deleted"
	default:
		return string(action)
	}
}
