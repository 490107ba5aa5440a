package models

// LifecycleState is the visibility/retention state of a collection or item.
// The lock flag is tracked separately and never changes it.
type LifecycleState string

const (
	StateActive  LifecycleState = "ACTIVE"
	StateHidden  LifecycleState = "HIDDEN"
	StateDeleted LifecycleState = "DELETED"
	// StatePurged is never stored; it is the absence of the document.
	StatePurged LifecycleState = "PURGED"
)

// Derive computes the state encoded by the stored flags.
func Derive(isDeleted, isHidden bool) LifecycleState {
	switch {
	case isDeleted:
		return StateDeleted
	case isHidden:
		return StateHidden
	default:
		return StateActive
	}
}

// Action is a lifecycle intent.
type Action string

const (
	ActionHide    Action = "hide"
	ActionUnhide  Action = "unhide"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
	ActionPurge   Action = "purge"
)

// Valid reports whether a is a known lifecycle action.
func (a Action) Valid() bool {
	switch a {
	case ActionHide, ActionUnhide, ActionDelete, ActionRestore, ActionPurge:
		return true
	}
	return false
}

// EntityKind names the two entity kinds for logs and metrics.
type EntityKind string

const (
	EntityCollection EntityKind = "collection"
	EntityItem       EntityKind = "item"
)
