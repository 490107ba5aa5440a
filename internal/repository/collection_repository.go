package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// CollectionRepository reads and writes collection documents.
type CollectionRepository struct {
	store        store.Store
	defaultColor string
	logger       *zap.Logger
}

// NewCollectionRepository constructs the repository.
func NewCollectionRepository(st store.Store, defaultColor string, logger *zap.Logger) *CollectionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionRepository{store: st, defaultColor: models.NormalizeColor(defaultColor, models.DefaultColor), logger: logger}
}

// Upsert writes the full field set of c, allocating an id when absent.
// On success c.ID holds the stored id.
func (r *CollectionRepository) Upsert(ctx context.Context, owner string, c *models.Collection) models.Result {
	if err := requireOwner(owner); err != nil {
		return models.Failed(err)
	}
	if c == nil {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "collection is required"))
	}
	if c.IsLocked && c.PasswordHash == "" {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "locked collection requires a password hash"))
	}
	if c.ID == "" {
		c.ID = r.store.NewID()
	}
	c.Color = models.NormalizeColor(c.Color, r.defaultColor)

	fields := store.Fields{
		FieldName:  c.Name,
		FieldColor: c.Color,
	}
	if c.CreatedAt != nil {
		fields[FieldCreatedAt] = *c.CreatedAt
	} else {
		fields[FieldCreatedAt] = store.ServerTimestamp
	}
	var deletedAt any = store.ServerTimestamp
	if c.DeletedAt != nil {
		deletedAt = *c.DeletedAt
	}
	lifecycleFields(fields, c.IsDeleted, deletedAt, c.IsHidden, c.IsLocked, c.PasswordHash)

	if err := r.store.Set(ctx, CollectionPath(owner, c.ID), fields); err != nil {
		r.logger.Warn("collection upsert failed", zap.String("owner_id", owner), zap.String("collection_id", c.ID), zap.Error(err))
		return models.Failed(classify(err, "collection"))
	}
	return models.Succeeded(c.ID, "collection saved")
}

// Get loads one collection.
func (r *CollectionRepository) Get(ctx context.Context, owner, id string) (models.Collection, error) {
	if err := requireOwner(owner); err != nil {
		return models.Collection{}, err
	}
	doc, err := r.store.Get(ctx, CollectionPath(owner, id))
	if err != nil {
		return models.Collection{}, classify(err, "collection")
	}
	return collectionFromDocument(doc), nil
}

// UpdateContent merges name and, when set, color into an existing collection.
// Lifecycle and lock fields are not written.
func (r *CollectionRepository) UpdateContent(ctx context.Context, owner, id, name, color string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	fields := store.Fields{FieldName: name}
	if color != "" {
		fields[FieldColor] = models.NormalizeColor(color, r.defaultColor)
	}
	if err := r.store.Update(ctx, CollectionPath(owner, id), fields); err != nil {
		return classify(err, "collection")
	}
	return nil
}

// UpdateFlags merges lifecycle fields into an existing collection.
func (r *CollectionRepository) UpdateFlags(ctx context.Context, owner, id string, fields store.Fields) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := r.store.Update(ctx, CollectionPath(owner, id), fields); err != nil {
		return classify(err, "collection")
	}
	return nil
}

// Purge removes the collection document. Purging an absent collection succeeds.
func (r *CollectionRepository) Purge(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, CollectionPath(owner, id)); err != nil {
		return classify(err, "collection")
	}
	return nil
}

// ListDeleted returns the soft-deleted collections of owner, newest deletion first.
func (r *CollectionRepository) ListDeleted(ctx context.Context, owner string) ([]models.Collection, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, r.deletedQuery(owner))
	if err != nil {
		return nil, classify(err, "collections")
	}
	out := make([]models.Collection, 0, len(docs))
	for _, doc := range docs {
		out = append(out, collectionFromDocument(doc))
	}
	return out, nil
}

// SubscribeActive streams collections that are neither deleted nor hidden, newest first.
func (r *CollectionRepository) SubscribeActive(ctx context.Context, owner string) (*Stream[models.Collection], error) {
	q := store.Query{Collection: CollectionsPath(owner)}.
		Where(FieldIsDeleted, false).
		Where(FieldIsHidden, false).
		OrderByDesc(FieldCreatedAt)
	return r.subscribe(ctx, owner, q)
}

// SubscribeDeleted streams soft-deleted collections ordered by deletion time.
func (r *CollectionRepository) SubscribeDeleted(ctx context.Context, owner string) (*Stream[models.Collection], error) {
	return r.subscribe(ctx, owner, r.deletedQuery(owner))
}

// SubscribeHidden streams hidden collections, including ones that are also deleted.
func (r *CollectionRepository) SubscribeHidden(ctx context.Context, owner string) (*Stream[models.Collection], error) {
	q := store.Query{Collection: CollectionsPath(owner)}.
		Where(FieldIsHidden, true).
		OrderByDesc(FieldCreatedAt)
	return r.subscribe(ctx, owner, q)
}

// FlagWrite builds a batched update of a collection's lifecycle fields.
func (r *CollectionRepository) FlagWrite(owner, id string, fields store.Fields) store.Write {
	return store.Write{Op: store.OpUpdate, Path: CollectionPath(owner, id), Fields: fields}
}

// PurgeWrite builds a batched delete of a collection.
func (r *CollectionRepository) PurgeWrite(owner, id string) store.Write {
	return store.Write{Op: store.OpDelete, Path: CollectionPath(owner, id)}
}

func (r *CollectionRepository) deletedQuery(owner string) store.Query {
	return store.Query{Collection: CollectionsPath(owner)}.
		Where(FieldIsDeleted, true).
		OrderByDesc(FieldDeletedAt)
}

func (r *CollectionRepository) subscribe(ctx context.Context, owner string, q store.Query) (*Stream[models.Collection], error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	stream, err := subscribe(ctx, r.store, q, collectionFromDocument)
	if err != nil {
		return nil, fmt.Errorf("subscribe collections: %w", classify(err, "collections"))
	}
	return stream, nil
}
