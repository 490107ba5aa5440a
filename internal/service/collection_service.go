package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/dto"
	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

type collectionRepository interface {
	Upsert(ctx context.Context, owner string, c *models.Collection) models.Result
	Get(ctx context.Context, owner, id string) (models.Collection, error)
	UpdateContent(ctx context.Context, owner, id, name, color string) error
	UpdateFlags(ctx context.Context, owner, id string, fields store.Fields) error
}

type collectionCascader interface {
	ApplyToCollection(ctx context.Context, owner, collectionID string, action models.Action) models.Result
}

// CollectionService implements collection intents: create, edit, lifecycle
// transitions (cascaded to items) and the password lock.
type CollectionService struct {
	repo      collectionRepository
	cascade   collectionCascader
	guard     *LockGuard
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCollectionService constructs the service.
func NewCollectionService(repo collectionRepository, cascade collectionCascader, guard *LockGuard, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CollectionService {
	if validate == nil {
		validate = validator.New()
	}
	if guard == nil {
		guard = NewLockGuard(DefaultMinPasswordLength)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionService{repo: repo, cascade: cascade, guard: guard, validator: validate, metrics: metrics, logger: logger}
}

// Get returns one collection.
func (s *CollectionService) Get(ctx context.Context, owner, id string) (models.Collection, error) {
	if owner == "" {
		return models.Collection{}, appErrors.ErrAuthRequired
	}
	return s.repo.Get(ctx, owner, id)
}

// Create stores a new active collection.
func (s *CollectionService) Create(ctx context.Context, owner string, req dto.CollectionRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return models.Failed(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "collection name is required and color must be a hex value"))
	}
	c := &models.Collection{Name: req.Name, Color: req.Color}
	res := s.repo.Upsert(ctx, owner, c)
	if res.Success {
		res.Message = "collection created"
	}
	return res
}

// Update edits name and color. Lifecycle and lock fields are never rewritten.
func (s *CollectionService) Update(ctx context.Context, owner, id string, req dto.CollectionRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return models.Failed(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "collection name is required and color must be a hex value"))
	}
	if err := s.repo.UpdateContent(ctx, owner, id, req.Name, req.Color); err != nil {
		return models.Failed(err)
	}
	return models.Succeeded(id, "collection updated")
}

// Transition applies a lifecycle action to the collection and its items.
func (s *CollectionService) Transition(ctx context.Context, owner, id string, action models.Action) models.Result {
	res := s.cascade.ApplyToCollection(ctx, owner, id, action)
	if !res.Success {
		s.logger.Info("collection transition rejected",
			zap.String("owner_id", owner),
			zap.String("collection_id", id),
			zap.String("action", string(action)),
			zap.String("reason", res.Message),
		)
	}
	return res
}

// Lock sets a password on the collection. Items are not affected.
func (s *CollectionService) Lock(ctx context.Context, owner, id string, req dto.LockRequest) models.Result {
	res := s.lock(ctx, owner, id, req)
	s.metrics.RecordTransition(models.EntityCollection, "lock", res.Success)
	return res
}

func (s *CollectionService) lock(ctx context.Context, owner, id string, req dto.LockRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Failed(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required"))
	}
	write := s.writer(owner, id)
	var err error
	if req.Confirmation != "" {
		err = s.guard.LockWithConfirmation(ctx, write, req.Password, req.Confirmation)
	} else {
		err = s.guard.Lock(ctx, write, req.Password)
	}
	if err != nil {
		return models.Failed(err)
	}
	return models.Succeeded(id, "collection locked")
}

// Unlock verifies the current password and removes the lock.
func (s *CollectionService) Unlock(ctx context.Context, owner, id string, req dto.PasswordRequest) models.Result {
	res := s.unlock(ctx, owner, id, req)
	s.metrics.RecordTransition(models.EntityCollection, "unlock", res.Success)
	return res
}

func (s *CollectionService) unlock(ctx context.Context, owner, id string, req dto.PasswordRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Failed(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required"))
	}
	c, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return models.Failed(err)
	}
	if !c.IsLocked {
		return models.Succeeded(id, "collection is not locked")
	}
	if !s.guard.Verify(req.Password, c.PasswordHash) {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "incorrect password"))
	}
	if err := s.guard.Unlock(ctx, s.writer(owner, id)); err != nil {
		return models.Failed(err)
	}
	return models.Succeeded(id, "collection unlocked")
}

// Verify checks password against the collection's stored digest.
func (s *CollectionService) Verify(ctx context.Context, owner, id, password string) (bool, error) {
	if owner == "" {
		return false, appErrors.ErrAuthRequired
	}
	c, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return false, err
	}
	return c.IsLocked && s.guard.Verify(password, c.PasswordHash), nil
}

func (s *CollectionService) writer(owner, id string) FlagWriter {
	return func(ctx context.Context, fields store.Fields) error {
		return s.repo.UpdateFlags(ctx, owner, id, fields)
	}
}
