package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/store"
	"github.com/noah-isme/notevault-api/pkg/config"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
	"github.com/noah-isme/notevault-api/pkg/jobs"
)

const fanOutJobType = "cascade.item"

type cascadeCollectionRepository interface {
	Get(ctx context.Context, owner, id string) (models.Collection, error)
	UpdateFlags(ctx context.Context, owner, id string, fields store.Fields) error
	Purge(ctx context.Context, owner, id string) error
	FlagWrite(owner, id string, fields store.Fields) store.Write
	PurgeWrite(owner, id string) store.Write
}

type cascadeItemRepository interface {
	ListByCollection(ctx context.Context, owner, collectionID string) ([]models.Item, error)
	UpdateFlags(ctx context.Context, owner, collectionID, id string, fields store.Fields) error
	Purge(ctx context.Context, owner, collectionID, id string) error
	FlagWrite(owner, collectionID, id string, fields store.Fields) store.Write
	PurgeWrite(owner, collectionID, id string) store.Write
}

// CascadeServiceConfig tunes how a collection transition reaches its items.
type CascadeServiceConfig struct {
	Mode        string
	Concurrency int
	Workers     int
	Retries     int
	RetryDelay  time.Duration
	Clock       func() time.Time
}

type fanOutJob struct {
	Owner        string
	CollectionID string
	ItemID       string
	Action       models.Action
	Patch        store.Fields
	Purge        bool
}

// CascadeService applies a lifecycle transition to a collection and then to
// every item under it.
type CascadeService struct {
	collections cascadeCollectionRepository
	items       cascadeItemRepository
	batcher     store.Batcher
	queue       *jobs.Queue
	metrics     *MetricsService
	logger      *zap.Logger
	mode        string
	concurrency int
	clock       func() time.Time
}

// NewCascadeService builds the controller. batcher may be nil, in which case
// atomic mode falls back to joined fan-out. Detached mode owns a job queue that
// must be started with Start.
func NewCascadeService(collections cascadeCollectionRepository, items cascadeItemRepository, batcher store.Batcher, metrics *MetricsService, logger *zap.Logger, cfg CascadeServiceConfig) *CascadeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	mode := cfg.Mode
	switch mode {
	case config.CascadeModeAtomic, config.CascadeModeJoin, config.CascadeModeDetached:
	default:
		mode = config.CascadeModeAtomic
	}
	if mode == config.CascadeModeAtomic && batcher == nil {
		logger.Warn("store cannot commit batches, cascading with joined fan-out")
		mode = config.CascadeModeJoin
	}

	svc := &CascadeService{
		collections: collections,
		items:       items,
		batcher:     batcher,
		metrics:     metrics,
		logger:      logger,
		mode:        mode,
		concurrency: cfg.Concurrency,
		clock:       cfg.Clock,
	}
	if mode == config.CascadeModeDetached {
		svc.queue = jobs.NewQueue("cascade", svc.handleJob, jobs.QueueConfig{
			Workers:    cfg.Workers,
			MaxRetries: cfg.Retries,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
			OnFailure: func(job jobs.Job, err error) {
				if payload, ok := job.Payload.(fanOutJob); ok {
					metrics.ObserveFanOut(config.CascadeModeDetached, payload.Action, 0, 1)
				}
			},
		})
	}
	return svc
}

// Mode reports the effective cascade mode.
func (s *CascadeService) Mode() string { return s.mode }

// Start launches the detached fan-out workers. It is a no-op in other modes.
// Cancelling ctx does not stop the workers; Stop drains and then ends them.
func (s *CascadeService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(context.WithoutCancel(ctx))
	}
}

// Stop drains outstanding fan-out work until ctx ends and stops the workers.
func (s *CascadeService) Stop(ctx context.Context) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Drain(ctx); err != nil {
		s.logger.Warn("cascade queue not drained", zap.Int("pending", s.queue.Pending()), zap.Error(err))
	}
	s.queue.Stop()
}

// Drain waits for detached fan-out work to finish.
func (s *CascadeService) Drain(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Drain(ctx)
}

// ApplyToCollection transitions the collection and cascades the same change to
// its items. A failure on the collection aborts before any item is touched.
func (s *CascadeService) ApplyToCollection(ctx context.Context, owner, collectionID string, action models.Action) models.Result {
	res := s.apply(ctx, owner, collectionID, action)
	s.metrics.RecordTransition(models.EntityCollection, string(action), res.Success)
	return res
}

func (s *CascadeService) apply(ctx context.Context, owner, collectionID string, action models.Action) models.Result {
	if owner == "" {
		return models.Failed(appErrors.ErrAuthRequired)
	}
	if !action.Valid() {
		return models.Failed(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", action)))
	}

	var tr Transition
	collection, err := s.collections.Get(ctx, owner, collectionID)
	switch {
	case err == nil:
		tr, err = Apply(Flags{IsDeleted: collection.IsDeleted, IsHidden: collection.IsHidden}, action, s.clock())
		if err != nil {
			return models.Failed(err)
		}
	case action == models.ActionPurge && repository.IsNotFound(err):
		// Purge stays idempotent; leftover items are still swept.
		tr = Transition{Action: action, From: models.StatePurged, To: models.StatePurged, Purge: true}
	default:
		return models.Failed(err)
	}

	logger := s.logger.With(
		zap.String("owner_id", owner),
		zap.String("collection_id", collectionID),
		zap.String("action", string(action)),
		zap.String("mode", s.mode),
	)

	switch s.mode {
	case config.CascadeModeAtomic:
		return s.applyAtomic(ctx, owner, collectionID, tr, logger)
	case config.CascadeModeDetached:
		if tr.Purge {
			// items go before the collection, so purge is never detached
			return s.applyJoined(ctx, owner, collectionID, tr, logger)
		}
		return s.applyDetached(ctx, owner, collectionID, tr, logger)
	default:
		return s.applyJoined(ctx, owner, collectionID, tr, logger)
	}
}

func (s *CascadeService) applyAtomic(ctx context.Context, owner, collectionID string, tr Transition, logger *zap.Logger) models.Result {
	items, err := s.items.ListByCollection(ctx, owner, collectionID)
	if err != nil {
		return models.Failed(err)
	}

	writes := make([]store.Write, 0, len(items)+1)
	if tr.Purge {
		for _, it := range items {
			writes = append(writes, s.items.PurgeWrite(owner, collectionID, it.ID))
		}
		writes = append(writes, s.collections.PurgeWrite(owner, collectionID))
	} else {
		writes = append(writes, s.collections.FlagWrite(owner, collectionID, tr.Patch))
		for _, it := range items {
			writes = append(writes, s.items.FlagWrite(owner, collectionID, it.ID, tr.Patch))
		}
	}

	if err := s.batcher.CommitBatch(ctx, writes); err != nil {
		logger.Warn("cascade batch failed", zap.Int("items", len(items)), zap.Error(err))
		if repository.IsNotFound(err) {
			return models.Failed(appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "collection or item changed during cascade, retry"))
		}
		return models.Failed(appErrors.FromStore(err))
	}

	s.metrics.ObserveFanOut(s.mode, tr.Action, len(items), 0)
	logger.Debug("cascade committed", zap.Int("items", len(items)))
	return models.Succeeded(collectionID, fmt.Sprintf("collection %s", pastTense(tr.Action)))
}

func (s *CascadeService) applyJoined(ctx context.Context, owner, collectionID string, tr Transition, logger *zap.Logger) models.Result {
	if !tr.Purge {
		if err := s.collections.UpdateFlags(ctx, owner, collectionID, tr.Patch); err != nil {
			return models.Failed(err)
		}
	}

	items, err := s.items.ListByCollection(ctx, owner, collectionID)
	if err != nil {
		logger.Warn("cascade item listing failed", zap.Error(err))
		return models.Failed(err)
	}

	var failed int64
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, it := range items {
		job := fanOutJob{Owner: owner, CollectionID: collectionID, ItemID: it.ID, Action: tr.Action, Patch: tr.Patch, Purge: tr.Purge}
		g.Go(func() error {
			if err := s.applyItem(ctx, job); err != nil {
				atomic.AddInt64(&failed, 1)
				logger.Warn("cascade item write failed", zap.String("item_id", job.ItemID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if tr.Purge {
		if failed > 0 {
			s.metrics.ObserveFanOut(s.mode, tr.Action, len(items), int(failed))
			return models.Failed(appErrors.Clone(appErrors.ErrStoreFailure, fmt.Sprintf("%d of %d items could not be deleted, collection kept", failed, len(items))))
		}
		if err := s.collections.Purge(ctx, owner, collectionID); err != nil {
			return models.Failed(err)
		}
	}

	s.metrics.ObserveFanOut(s.mode, tr.Action, len(items), int(failed))
	msg := fmt.Sprintf("collection %s", pastTense(tr.Action))
	if failed > 0 {
		msg = fmt.Sprintf("%s; %d of %d items were not updated", msg, failed, len(items))
	}
	return models.Succeeded(collectionID, msg)
}

func (s *CascadeService) applyDetached(ctx context.Context, owner, collectionID string, tr Transition, logger *zap.Logger) models.Result {
	if err := s.collections.UpdateFlags(ctx, owner, collectionID, tr.Patch); err != nil {
		return models.Failed(err)
	}

	items, err := s.items.ListByCollection(ctx, owner, collectionID)
	if err != nil {
		logger.Warn("cascade item listing failed", zap.Error(err))
		return models.Failed(err)
	}

	for _, it := range items {
		job := jobs.Job{
			ID:   collectionID + "/" + it.ID,
			Type: fanOutJobType,
			Payload: fanOutJob{
				Owner:        owner,
				CollectionID: collectionID,
				ItemID:       it.ID,
				Action:       tr.Action,
				Patch:        tr.Patch,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			logger.Error("cascade enqueue failed", zap.String("item_id", it.ID), zap.Error(err))
		}
	}

	s.metrics.ObserveFanOut(s.mode, tr.Action, len(items), 0)
	return models.Succeeded(collectionID, fmt.Sprintf("collection %s", pastTense(tr.Action)))
}

// handleJob runs one detached fan-out write. Jobs can be retried after later
// transitions of the same collection, so the patch is rebuilt from the
// collection as stored now rather than taken from the job.
func (s *CascadeService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(fanOutJob)
	if !ok {
		s.logger.Error("unexpected cascade job payload", zap.String("job_id", job.ID))
		return nil
	}
	collection, err := s.collections.Get(ctx, payload.Owner, payload.CollectionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	payload.Patch = mirrorPatch(collection, payload.Action)
	return s.applyItem(ctx, payload)
}

// mirrorPatch copies the collection's current value of the flags action
// touches.
func mirrorPatch(c models.Collection, action models.Action) store.Fields {
	switch action {
	case models.ActionHide, models.ActionUnhide:
		return store.Fields{repository.FieldIsHidden: c.IsHidden}
	default:
		if !c.IsDeleted {
			return store.Fields{
				repository.FieldIsDeleted: false,
				repository.FieldDeletedAt: store.FieldDelete,
			}
		}
		var deletedAt any = store.ServerTimestamp
		if c.DeletedAt != nil {
			deletedAt = c.DeletedAt.UTC()
		}
		return store.Fields{
			repository.FieldIsDeleted: true,
			repository.FieldDeletedAt: deletedAt,
		}
	}
}

// applyItem writes one fan-out change. An item that vanished meanwhile is skipped.
func (s *CascadeService) applyItem(ctx context.Context, job fanOutJob) error {
	var err error
	if job.Purge {
		err = s.items.Purge(ctx, job.Owner, job.CollectionID, job.ItemID)
	} else {
		err = s.items.UpdateFlags(ctx, job.Owner, job.CollectionID, job.ItemID, job.Patch)
	}
	if repository.IsNotFound(err) {
		return nil
	}
	return err
}
