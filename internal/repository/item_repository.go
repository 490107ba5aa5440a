package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// ItemRepository reads and writes item documents.
type ItemRepository struct {
	store        store.Store
	defaultColor string
	logger       *zap.Logger
}

// NewItemRepository constructs the repository.
func NewItemRepository(st store.Store, defaultColor string, logger *zap.Logger) *ItemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemRepository{store: st, defaultColor: models.NormalizeColor(defaultColor, models.DefaultColor), logger: logger}
}

// Upsert writes the full field set of it under scope. OwnerID and
// CollectionID are filled from scope when absent; the parent collection must
// exist and an existing item never moves to another collection.
func (r *ItemRepository) Upsert(ctx context.Context, scope Scope, it *models.Item) models.Result {
	if err := requireOwner(scope.OwnerID); err != nil {
		return models.Failed(err)
	}
	if it == nil {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "item is required"))
	}
	if it.CollectionID == "" {
		it.CollectionID = scope.CollectionID
	}
	if it.CollectionID == "" {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "collectionId is required"))
	}
	if scope.CollectionID != "" && scope.CollectionID != it.CollectionID {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "collectionId cannot be changed"))
	}
	if it.OwnerID != "" && it.OwnerID != scope.OwnerID {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "ownerId does not match the authenticated owner"))
	}
	it.OwnerID = scope.OwnerID
	if it.IsLocked && it.PasswordHash == "" {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "locked item requires a password hash"))
	}

	if _, err := r.store.Get(ctx, CollectionPath(scope.OwnerID, it.CollectionID)); err != nil {
		return models.Failed(classify(err, "collection"))
	}

	if it.ID == "" {
		it.ID = r.store.NewID()
	} else if it.Timestamp == nil {
		existing, err := r.store.Get(ctx, ItemPath(scope.OwnerID, it.CollectionID, it.ID))
		switch {
		case err == nil:
			it.Timestamp = existing.Fields.Time(FieldTimestamp)
		case !IsNotFound(err):
			return models.Failed(classify(err, "item"))
		}
	}
	it.Color = models.NormalizeColor(it.Color, r.defaultColor)

	fields := store.Fields{
		FieldOwnerID:      it.OwnerID,
		FieldCollectionID: it.CollectionID,
		FieldTitle:        it.Title,
		FieldContent:      it.Content,
		FieldColor:        it.Color,
		FieldUpdatedAt:    store.ServerTimestamp,
	}
	if it.Timestamp != nil {
		fields[FieldTimestamp] = *it.Timestamp
	} else {
		fields[FieldTimestamp] = store.ServerTimestamp
	}
	var deletedAt any = store.ServerTimestamp
	if it.DeletedAt != nil {
		deletedAt = *it.DeletedAt
	}
	lifecycleFields(fields, it.IsDeleted, deletedAt, it.IsHidden, it.IsLocked, it.PasswordHash)

	if err := r.store.Set(ctx, ItemPath(scope.OwnerID, it.CollectionID, it.ID), fields); err != nil {
		r.logger.Warn("item upsert failed",
			zap.String("owner_id", scope.OwnerID),
			zap.String("collection_id", it.CollectionID),
			zap.String("item_id", it.ID),
			zap.Error(err),
		)
		return models.Failed(classify(err, "item"))
	}
	return models.Succeeded(it.ID, "item saved")
}

// Get loads one item.
func (r *ItemRepository) Get(ctx context.Context, owner, collectionID, id string) (models.Item, error) {
	if err := requireOwner(owner); err != nil {
		return models.Item{}, err
	}
	doc, err := r.store.Get(ctx, ItemPath(owner, collectionID, id))
	if err != nil {
		return models.Item{}, classify(err, "item")
	}
	return itemFromDocument(doc), nil
}

// ListByCollection is a point-in-time read of every item under a collection,
// whatever its lifecycle state.
func (r *ItemRepository) ListByCollection(ctx context.Context, owner, collectionID string) ([]models.Item, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, store.Query{Collection: ItemsPath(owner, collectionID)})
	if err != nil {
		return nil, classify(err, "items")
	}
	return decodeItems(docs), nil
}

// ListDeleted returns the owner's soft-deleted items across all collections.
func (r *ItemRepository) ListDeleted(ctx context.Context, owner string) ([]models.Item, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, deletedItemsQuery(Scope{OwnerID: owner}))
	if err != nil {
		return nil, classify(err, "items")
	}
	return decodeItems(docs), nil
}

// UpdateContent merges title, content and, when set, color into an existing
// item and refreshes updatedAt. Lifecycle and lock fields are not written.
func (r *ItemRepository) UpdateContent(ctx context.Context, owner, collectionID, id, title, content, color string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	fields := store.Fields{FieldTitle: title, FieldContent: content}
	if color != "" {
		fields[FieldColor] = models.NormalizeColor(color, r.defaultColor)
	}
	if err := r.store.Update(ctx, ItemPath(owner, collectionID, id), withUpdatedAt(fields)); err != nil {
		return classify(err, "item")
	}
	return nil
}

// UpdateFlags merges lifecycle fields into an existing item and refreshes updatedAt.
func (r *ItemRepository) UpdateFlags(ctx context.Context, owner, collectionID, id string, fields store.Fields) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := r.store.Update(ctx, ItemPath(owner, collectionID, id), withUpdatedAt(fields)); err != nil {
		return classify(err, "item")
	}
	return nil
}

// Purge removes the item document. Purging an absent item succeeds.
func (r *ItemRepository) Purge(ctx context.Context, owner, collectionID, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, ItemPath(owner, collectionID, id)); err != nil {
		return classify(err, "item")
	}
	return nil
}

// SubscribeActive streams items that are neither deleted nor hidden, newest first.
func (r *ItemRepository) SubscribeActive(ctx context.Context, scope Scope) (*Stream[models.Item], error) {
	q := itemsQuery(scope).
		Where(FieldIsDeleted, false).
		Where(FieldIsHidden, false).
		OrderByDesc(FieldTimestamp)
	return r.subscribe(ctx, scope, q)
}

// SubscribeDeleted streams soft-deleted items ordered by deletion time.
func (r *ItemRepository) SubscribeDeleted(ctx context.Context, scope Scope) (*Stream[models.Item], error) {
	return r.subscribe(ctx, scope, deletedItemsQuery(scope))
}

// SubscribeHidden streams hidden items, including ones that are also deleted.
func (r *ItemRepository) SubscribeHidden(ctx context.Context, scope Scope) (*Stream[models.Item], error) {
	q := itemsQuery(scope).
		Where(FieldIsHidden, true).
		OrderByDesc(FieldTimestamp)
	return r.subscribe(ctx, scope, q)
}

// FlagWrite builds a batched update of an item's lifecycle fields.
func (r *ItemRepository) FlagWrite(owner, collectionID, id string, fields store.Fields) store.Write {
	return store.Write{Op: store.OpUpdate, Path: ItemPath(owner, collectionID, id), Fields: withUpdatedAt(fields)}
}

// PurgeWrite builds a batched delete of an item.
func (r *ItemRepository) PurgeWrite(owner, collectionID, id string) store.Write {
	return store.Write{Op: store.OpDelete, Path: ItemPath(owner, collectionID, id)}
}

func (r *ItemRepository) subscribe(ctx context.Context, scope Scope, q store.Query) (*Stream[models.Item], error) {
	if err := requireOwner(scope.OwnerID); err != nil {
		return nil, err
	}
	stream, err := subscribe(ctx, r.store, q, itemFromDocument)
	if err != nil {
		return nil, fmt.Errorf("subscribe items: %w", classify(err, "items"))
	}
	return stream, nil
}

func itemsQuery(scope Scope) store.Query {
	if scope.OwnerWide() {
		return store.Query{Group: itemsName, Root: OwnerRoot(scope.OwnerID)}.Where(FieldOwnerID, scope.OwnerID)
	}
	return store.Query{Collection: ItemsPath(scope.OwnerID, scope.CollectionID)}
}

func deletedItemsQuery(scope Scope) store.Query {
	return itemsQuery(scope).
		Where(FieldIsDeleted, true).
		OrderByDesc(FieldDeletedAt)
}

func withUpdatedAt(fields store.Fields) store.Fields {
	out := fields.Clone()
	out[FieldUpdatedAt] = store.ServerTimestamp
	return out
}

func decodeItems(docs []store.Document) []models.Item {
	out := make([]models.Item, 0, len(docs))
	for _, doc := range docs {
		out = append(out, itemFromDocument(doc))
	}
	return out
}
