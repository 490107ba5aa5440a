package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/dto"
	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/store"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

type itemRepository interface {
	Upsert(ctx context.Context, scope repository.Scope, it *models.Item) models.Result
	Get(ctx context.Context, owner, collectionID, id string) (models.Item, error)
	UpdateContent(ctx context.Context, owner, collectionID, id, title, content, color string) error
	UpdateFlags(ctx context.Context, owner, collectionID, id string, fields store.Fields) error
	Purge(ctx context.Context, owner, collectionID, id string) error
}

// ItemService implements item intents. Item transitions never cascade.
type ItemService struct {
	repo      itemRepository
	guard     *LockGuard
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	clock     func() time.Time
}

// NewItemService constructs the service. clock defaults to time.Now.
func NewItemService(repo itemRepository, guard *LockGuard, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, clock func() time.Time) *ItemService {
	if validate == nil {
		validate = validator.New()
	}
	if guard == nil {
		guard = NewLockGuard(DefaultMinPasswordLength)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &ItemService{repo: repo, guard: guard, validator: validate, metrics: metrics, logger: logger, clock: clock}
}

// Get returns one item.
func (s *ItemService) Get(ctx context.Context, owner, collectionID, id string) (models.Item, error) {
	if owner == "" {
		return models.Item{}, appErrors.ErrAuthRequired
	}
	return s.repo.Get(ctx, owner, collectionID, id)
}

// Create stores a new item under collectionID.
func (s *ItemService) Create(ctx context.Context, owner, collectionID string, req dto.ItemRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if err := s.validate(&req); err != nil {
		return models.Failed(err)
	}
	it := &models.Item{Title: req.Title, Content: req.Content, Color: req.Color}
	res := s.repo.Upsert(ctx, repository.Scope{OwnerID: owner, CollectionID: collectionID}, it)
	if res.Success {
		res.Message = "item created"
	}
	return res
}

// Update edits title, content and color. Lifecycle and lock fields are never
// rewritten.
func (s *ItemService) Update(ctx context.Context, owner, collectionID, id string, req dto.ItemRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if err := s.validate(&req); err != nil {
		return models.Failed(err)
	}
	if err := s.repo.UpdateContent(ctx, owner, collectionID, id, req.Title, req.Content, req.Color); err != nil {
		return models.Failed(err)
	}
	return models.Succeeded(id, "item updated")
}

// Transition applies a lifecycle action to one item.
func (s *ItemService) Transition(ctx context.Context, owner, collectionID, id string, action models.Action) models.Result {
	res := s.transition(ctx, owner, collectionID, id, action)
	s.metrics.RecordTransition(models.EntityItem, string(action), res.Success)
	return res
}

func (s *ItemService) transition(ctx context.Context, owner, collectionID, id string, action models.Action) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	it, err := s.repo.Get(ctx, owner, collectionID, id)
	if err != nil {
		if action == models.ActionPurge && repository.IsNotFound(err) {
			return models.Succeeded(id, "item already purged")
		}
		return models.Failed(err)
	}
	tr, err := Apply(Flags{IsDeleted: it.IsDeleted, IsHidden: it.IsHidden}, action, s.clock())
	if err != nil {
		return models.Failed(err)
	}
	if tr.Purge {
		err = s.repo.Purge(ctx, owner, collectionID, id)
	} else {
		err = s.repo.UpdateFlags(ctx, owner, collectionID, id, tr.Patch)
	}
	if err != nil {
		s.logger.Warn("item transition failed",
			zap.String("owner_id", owner),
			zap.String("item_id", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return models.Failed(err)
	}
	return models.Succeeded(id, "item "+pastTense(action))
}

// Lock sets a password on the item.
func (s *ItemService) Lock(ctx context.Context, owner, collectionID, id string, req dto.LockRequest) models.Result {
	res := s.lock(ctx, owner, collectionID, id, req)
	s.metrics.RecordTransition(models.EntityItem, "lock", res.Success)
	return res
}

func (s *ItemService) lock(ctx context.Context, owner, collectionID, id string, req dto.LockRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Failed(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required"))
	}
	write := s.writer(owner, collectionID, id)
	var err error
	if req.Confirmation != "" {
		err = s.guard.LockWithConfirmation(ctx, write, req.Password, req.Confirmation)
	} else {
		err = s.guard.Lock(ctx, write, req.Password)
	}
	if err != nil {
		return models.Failed(err)
	}
	return models.Succeeded(id, "item locked")
}

// Unlock verifies the current password and removes the lock.
func (s *ItemService) Unlock(ctx context.Context, owner, collectionID, id string, req dto.PasswordRequest) models.Result {
	res := s.unlock(ctx, owner, collectionID, id, req)
	s.metrics.RecordTransition(models.EntityItem, "unlock", res.Success)
	return res
}

func (s *ItemService) unlock(ctx context.Context, owner, collectionID, id string, req dto.PasswordRequest) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Failed(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required"))
	}
	it, err := s.repo.Get(ctx, owner, collectionID, id)
	if err != nil {
		return models.Failed(err)
	}
	if !it.IsLocked {
		return models.Succeeded(id, "item is not locked")
	}
	if !s.guard.Verify(req.Password, it.PasswordHash) {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, "incorrect password"))
	}
	if err := s.guard.Unlock(ctx, s.writer(owner, collectionID, id)); err != nil {
		return models.Failed(err)
	}
	return models.Succeeded(id, "item unlocked")
}

// Verify checks password against the item's stored digest.
func (s *ItemService) Verify(ctx context.Context, owner, collectionID, id, password string) (bool, error) {
	if owner == "" {
		return false, appErrors.ErrAuthRequired
	}
	it, err := s.repo.Get(ctx, owner, collectionID, id)
	if err != nil {
		return false, err
	}
	return it.IsLocked && s.guard.Verify(password, it.PasswordHash), nil
}

func (s *ItemService) validate(req *dto.ItemRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and content are required and color must be a hex value")
	}
	return nil
}

func (s *ItemService) writer(owner, collectionID, id string) FlagWriter {
	return func(ctx context.Context, fields store.Fields) error {
		return s.repo.UpdateFlags(ctx, owner, collectionID, id, fields)
	}
}
