package dto

// CollectionRequest creates or edits a collection.
type CollectionRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// ItemRequest creates or edits an item.
type ItemRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
	Color   string `json:"color" validate:"omitempty,hexcolor"`
}

// LockRequest sets a password on a collection or item. Confirmation is
// checked when present.
type LockRequest struct {
	Password     string `json:"password" validate:"required"`
	Confirmation string `json:"confirmation"`
}

// PasswordRequest carries a password for unlock and verify.
type PasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// VerifyResponse reports a password check.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// PaletteResponse lists the preset colors and the default applied to writes
// without one.
type PaletteResponse struct {
	Default string   `json:"default"`
	Colors  []string `json:"colors"`
}
