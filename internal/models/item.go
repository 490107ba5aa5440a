package models

import "time"

// Item is a note stored under its collection. OwnerID is kept on the document
// so owner-wide views can query across collections.
type Item struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	CollectionID string     `json:"collectionId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Color        string     `json:"color"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	IsDeleted    bool       `json:"isDeleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	IsHidden     bool       `json:"isHidden"`
	IsLocked     bool       `json:"isLocked"`
	PasswordHash string     `json:"-"`
}

// State derives the lifecycle state from the stored flags.
func (i Item) State() LifecycleState {
	return Derive(i.IsDeleted, i.IsHidden)
}
