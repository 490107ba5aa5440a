package models

import "time"

// ViewName identifies a merged presentation view.
type ViewName string

const (
	ViewActive     ViewName = "active"
	ViewHidden     ViewName = "hidden"
	ViewRecycleBin ViewName = "recycle-bin"
)

// ViewEntry is one row of a merged view; exactly one of Collection or Item is set.
type ViewEntry struct {
	Kind       EntityKind  `json:"kind"`
	Collection *Collection `json:"collection,omitempty"`
	Item       *Item       `json:"item,omitempty"`
}

// ViewSnapshot is a full merged view: collections first, then items.
type ViewSnapshot struct {
	View      ViewName    `json:"view"`
	Entries   []ViewEntry `json:"entries"`
	Error     string      `json:"error,omitempty"`
	EmittedAt time.Time   `json:"emittedAt"`
}
