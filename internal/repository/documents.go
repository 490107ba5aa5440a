package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// Document field names shared by collections and items.
const (
	FieldName         = "name"
	FieldTitle        = "title"
	FieldContent      = "content"
	FieldColor        = "color"
	FieldOwnerID      = "ownerId"
	FieldCollectionID = "collectionId"
	FieldCreatedAt    = "createdAt"
	FieldTimestamp    = "timestamp"
	FieldUpdatedAt    = "updatedAt"
	FieldIsDeleted    = "isDeleted"
	FieldDeletedAt    = "deletedAt"
	FieldIsHidden     = "isHidden"
	FieldIsLocked     = "isLocked"
	FieldPasswordHash = "passwordHash"
)

const (
	usersCollection = "users"
	collectionsName = "collections"
	itemsName       = "items"
)

// Scope selects the items a query runs over: one collection, or every
// collection of the owner when CollectionID is empty.
type Scope struct {
	OwnerID      string
	CollectionID string
}

// OwnerWide reports whether the scope spans all collections.
func (s Scope) OwnerWide() bool { return s.CollectionID == "" }

// OwnerRoot is the document path of the owner.
func OwnerRoot(owner string) string {
	return store.Join(usersCollection, owner)
}

// CollectionsPath is the collection path holding the owner's collections.
func CollectionsPath(owner string) string {
	return store.Join(usersCollection, owner, collectionsName)
}

// CollectionPath is the document path of one collection.
func CollectionPath(owner, id string) string {
	return store.Join(CollectionsPath(owner), id)
}

// ItemsPath is the collection path holding the items of a collection.
func ItemsPath(owner, collectionID string) string {
	return store.Join(CollectionPath(owner, collectionID), itemsName)
}

// ItemPath is the document path of one item.
func ItemPath(owner, collectionID, id string) string {
	return store.Join(ItemsPath(owner, collectionID), id)
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return appErrors.ErrAuthRequired
	}
	return nil
}

// classify maps store failures onto the engine taxonomy.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, fmt.Sprintf("%s not found", what))
	case errors.Is(err, store.ErrInvalidPath), errors.Is(err, store.ErrInvalidQuery):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.FromStore(err)
	}
}

// IsNotFound reports whether err denotes an absent document.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, appErrors.ErrNotFound)
}

func lifecycleFields(fields store.Fields, isDeleted bool, deletedAt any, isHidden, isLocked bool, passwordHash string) {
	fields[FieldIsDeleted] = isDeleted
	fields[FieldIsHidden] = isHidden
	fields[FieldIsLocked] = isLocked
	if isDeleted {
		fields[FieldDeletedAt] = deletedAt
	} else {
		fields[FieldDeletedAt] = store.FieldDelete
	}
	if isLocked {
		fields[FieldPasswordHash] = passwordHash
	} else {
		fields[FieldPasswordHash] = store.FieldDelete
	}
}

func collectionFromDocument(doc store.Document) models.Collection {
	f := doc.Fields
	return models.Collection{
		ID:           doc.ID,
		Name:         f.String(FieldName),
		Color:        f.String(FieldColor),
		CreatedAt:    f.Time(FieldCreatedAt),
		IsDeleted:    f.Bool(FieldIsDeleted),
		DeletedAt:    f.Time(FieldDeletedAt),
		IsHidden:     f.Bool(FieldIsHidden),
		IsLocked:     f.Bool(FieldIsLocked),
		PasswordHash: f.String(FieldPasswordHash),
	}
}

func itemFromDocument(doc store.Document) models.Item {
	f := doc.Fields
	return models.Item{
		ID:           doc.ID,
		OwnerID:      f.String(FieldOwnerID),
		CollectionID: f.String(FieldCollectionID),
		Title:        f.String(FieldTitle),
		Content:      f.String(FieldContent),
		Color:        f.String(FieldColor),
		Timestamp:    f.Time(FieldTimestamp),
		UpdatedAt:    f.Time(FieldUpdatedAt),
		IsDeleted:    f.Bool(FieldIsDeleted),
		DeletedAt:    f.Time(FieldDeletedAt),
		IsHidden:     f.Bool(FieldIsHidden),
		IsLocked:     f.Bool(FieldIsLocked),
		PasswordHash: f.String(FieldPasswordHash),
	}
}
