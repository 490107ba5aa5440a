package models

import "time"

// Collection is a folder grouping items. Stored at users/{owner}/collections/{id}.
type Collection struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Color        string     `json:"color"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	IsDeleted    bool       `json:"isDeleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	IsHidden     bool       `json:"isHidden"`
	IsLocked     bool       `json:"isLocked"`
	PasswordHash string     `json:"-"`
}

// State derives the lifecycle state from the stored flags.
func (c Collection) State() LifecycleState {
	return Derive(c.IsDeleted, c.IsHidden)
}
