package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// DefaultMinPasswordLength is the shortest password accepted by Lock.
const DefaultMinPasswordLength = 4

// FlagWriter applies a partial update to one entity.
type FlagWriter func(ctx context.Context, fields store.Fields) error

// LockGuard hashes and verifies entity passwords and writes the lock overlay.
type LockGuard struct {
	minLength int
}

// NewLockGuard constructs a guard enforcing minLength (DefaultMinPasswordLength when <= 0).
func NewLockGuard(minLength int) *LockGuard {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	return &LockGuard{minLength: minLength}
}

// Hash returns the lowercase hex SHA-256 digest of password. Empty input has no digest.
func (g *LockGuard) Hash(password string) (string, bool) {
	if password == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), true
}

// Verify reports whether password hashes to stored. The digest comparison
// ignores case; empty inputs never match.
func (g *LockGuard) Verify(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}
	digest, ok := g.Hash(password)
	return ok && strings.EqualFold(digest, stored)
}

// Lock validates password and then sets isLocked and passwordHash through write.
func (g *LockGuard) Lock(ctx context.Context, write FlagWriter, password string) error {
	if utf8.RuneCountInString(password) < g.minLength {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("password must be at least %d characters", g.minLength))
	}
	digest, _ := g.Hash(password)
	return write(ctx, store.Fields{
		repository.FieldIsLocked:     true,
		repository.FieldPasswordHash: digest,
	})
}

// LockWithConfirmation rejects a mismatched confirmation before locking.
func (g *LockGuard) LockWithConfirmation(ctx context.Context, write FlagWriter, password, confirmation string) error {
	if password != confirmation {
		return appErrors.Clone(appErrors.ErrValidation, "passwords do not match")
	}
	return g.Lock(ctx, write, password)
}

// Unlock clears the lock and removes the stored digest.
func (g *LockGuard) Unlock(ctx context.Context, write FlagWriter) error {
	return write(ctx, store.Fields{
		repository.FieldIsLocked:     false,
		repository.FieldPasswordHash: store.FieldDelete,
	})
}
