package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

type viewCollectionRepository interface {
	SubscribeActive(ctx context.Context, owner string) (*repository.Stream[models.Collection], error)
	SubscribeDeleted(ctx context.Context, owner string) (*repository.Stream[models.Collection], error)
	SubscribeHidden(ctx context.Context, owner string) (*repository.Stream[models.Collection], error)
}

type viewItemRepository interface {
	SubscribeActive(ctx context.Context, scope repository.Scope) (*repository.Stream[models.Item], error)
	SubscribeDeleted(ctx context.Context, scope repository.Scope) (*repository.Stream[models.Item], error)
	SubscribeHidden(ctx context.Context, scope repository.Scope) (*repository.Stream[models.Item], error)
}

type sweeper interface {
	Sweep(ctx context.Context, owner string) (models.SweepReport, error)
}

// MergedView combines a collection stream and an item stream into one ordered
// view, collections first. Each update re-merges with the other stream's last
// value; nothing is re-fetched.
type MergedView struct {
	name        models.ViewName
	collections *repository.Stream[models.Collection]
	items       *repository.Stream[models.Item]
	ch          chan models.ViewSnapshot
	cancel      context.CancelFunc
	done        chan struct{}
	metrics     *MetricsService
}

// Name returns the view name.
func (v *MergedView) Name() models.ViewName { return v.name }

// Snapshots returns the merged push stream.
func (v *MergedView) Snapshots() <-chan models.ViewSnapshot { return v.ch }

// Close stops both streams. No snapshot is delivered after it returns.
func (v *MergedView) Close() {
	if v == nil {
		return
	}
	v.cancel()
	v.collections.Cancel()
	v.items.Cancel()
	<-v.done
}

func newMergedView(ctx context.Context, name models.ViewName, collections *repository.Stream[models.Collection], items *repository.Stream[models.Item], metrics *MetricsService) *MergedView {
	ctx, cancel := context.WithCancel(ctx)
	v := &MergedView{
		name:        name,
		collections: collections,
		items:       items,
		ch:          make(chan models.ViewSnapshot),
		cancel:      cancel,
		done:        make(chan struct{}),
		metrics:     metrics,
	}
	go v.run(ctx)
	return v
}

func (v *MergedView) run(ctx context.Context) {
	defer close(v.done)
	defer close(v.ch)

	var collectionUpdates <-chan repository.Snapshot[models.Collection]
	var itemUpdates <-chan repository.Snapshot[models.Item]
	if v.collections != nil {
		collectionUpdates = v.collections.Updates()
	}
	if v.items != nil {
		itemUpdates = v.items.Updates()
	}

	var lastCollections []models.Collection
	var lastItems []models.Item
	for {
		var errText string
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-collectionUpdates:
			if !ok {
				return
			}
			if snap.Err != nil {
				errText = snap.Err.Error()
			} else {
				lastCollections = snap.Entries
			}
		case snap, ok := <-itemUpdates:
			if !ok {
				return
			}
			if snap.Err != nil {
				errText = snap.Err.Error()
			} else {
				lastItems = snap.Entries
			}
		}

		out := models.ViewSnapshot{
			View:      v.name,
			Entries:   merge(lastCollections, lastItems),
			Error:     errText,
			EmittedAt: time.Now().UTC(),
		}
		select {
		case v.ch <- out:
			v.metrics.RecordSnapshot(v.name)
		case <-ctx.Done():
			return
		}
	}
}

func merge(collections []models.Collection, items []models.Item) []models.ViewEntry {
	entries := make([]models.ViewEntry, 0, len(collections)+len(items))
	for i := range collections {
		c := collections[i]
		entries = append(entries, models.ViewEntry{Kind: models.EntityCollection, Collection: &c})
	}
	for i := range items {
		it := items[i]
		entries = append(entries, models.ViewEntry{Kind: models.EntityItem, Item: &it})
	}
	return entries
}

// ViewService opens the live views shown to observers.
type ViewService struct {
	collections viewCollectionRepository
	items       viewItemRepository
	reaper      sweeper
	sweepOnOpen bool
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewViewService constructs the service. When sweepOnOpen is set, opening the
// recycle bin runs the retention reaper first.
func NewViewService(collections viewCollectionRepository, items viewItemRepository, reaper sweeper, sweepOnOpen bool, metrics *MetricsService, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{collections: collections, items: items, reaper: reaper, sweepOnOpen: sweepOnOpen, metrics: metrics, logger: logger}
}

// Open starts the named view for owner. The active view carries collections
// only; active items are streamed per collection by OpenItems.
func (s *ViewService) Open(ctx context.Context, owner string, name models.ViewName) (*MergedView, error) {
	if owner == "" {
		return nil, appErrors.ErrAuthRequired
	}
	scope := repository.Scope{OwnerID: owner}

	var (
		collections *repository.Stream[models.Collection]
		items       *repository.Stream[models.Item]
		err         error
	)
	switch name {
	case models.ViewActive:
		collections, err = s.collections.SubscribeActive(ctx, owner)
	case models.ViewHidden:
		collections, err = s.collections.SubscribeHidden(ctx, owner)
		if err == nil {
			items, err = s.items.SubscribeHidden(ctx, scope)
		}
	case models.ViewRecycleBin:
		s.sweep(ctx, owner)
		collections, err = s.collections.SubscribeDeleted(ctx, owner)
		if err == nil {
			items, err = s.items.SubscribeDeleted(ctx, scope)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown view %q", name))
	}
	if err != nil {
		collections.Cancel()
		return nil, err
	}
	return newMergedView(ctx, name, collections, items, s.metrics), nil
}

// OpenItems streams the active items of one collection.
func (s *ViewService) OpenItems(ctx context.Context, owner, collectionID string) (*MergedView, error) {
	if owner == "" {
		return nil, appErrors.ErrAuthRequired
	}
	items, err := s.items.SubscribeActive(ctx, repository.Scope{OwnerID: owner, CollectionID: collectionID})
	if err != nil {
		return nil, err
	}
	return newMergedView(ctx, models.ViewActive, nil, items, s.metrics), nil
}

func (s *ViewService) sweep(ctx context.Context, owner string) {
	if !s.sweepOnOpen || s.reaper == nil {
		return
	}
	report, err := s.reaper.Sweep(ctx, owner)
	if err != nil {
		s.logger.Warn("recycle bin sweep failed", zap.String("owner_id", owner), zap.Error(err))
		return
	}
	if len(report.Errors) > 0 {
		s.logger.Warn("recycle bin sweep incomplete", zap.String("owner_id", owner), zap.Strings("errors", report.Errors))
	}
}
