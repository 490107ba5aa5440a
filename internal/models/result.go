package models

import (
	"errors"
	"time"

	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// Result reports the outcome of an engine operation. Failures never panic;
// Err carries the typed cause for transport mapping.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Err     error  `json:"-"`
}

// Succeeded builds a successful result.
func Succeeded(id, message string) Result {
	return Result{Success: true, ID: id, Message: message}
}

// Failed builds a failed result from err, preferring the typed message.
func Failed(err error) Result {
	if err == nil {
		return Result{Success: false, Message: "operation failed"}
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return Result{Success: false, Message: typed.Message, Err: err}
	}
	return Result{Success: false, Message: err.Error(), Err: err}
}

// SweepReport summarises one retention sweep.
type SweepReport struct {
	OwnerID           string    `json:"ownerId"`
	Cutoff            time.Time `json:"cutoff"`
	CollectionsPurged int       `json:"collectionsPurged"`
	ItemsPurged       int       `json:"itemsPurged"`
	Errors            []string  `json:"errors,omitempty"`
}
