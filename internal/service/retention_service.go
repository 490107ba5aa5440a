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

// DefaultRetentionWindow is how long a soft-deleted entity stays restorable.
const DefaultRetentionWindow = 30 * 24 * time.Hour

type retentionCollectionRepository interface {
	ListDeleted(ctx context.Context, owner string) ([]models.Collection, error)
	Purge(ctx context.Context, owner, id string) error
}

type retentionItemRepository interface {
	ListByCollection(ctx context.Context, owner, collectionID string) ([]models.Item, error)
	ListDeleted(ctx context.Context, owner string) ([]models.Item, error)
	Purge(ctx context.Context, owner, collectionID, id string) error
}

// RetentionService purges soft-deleted entities whose retention window elapsed.
type RetentionService struct {
	collections retentionCollectionRepository
	items       retentionItemRepository
	window      time.Duration
	clock       func() time.Time
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewRetentionService constructs the reaper. window defaults to 30 days.
func NewRetentionService(collections retentionCollectionRepository, items retentionItemRepository, window time.Duration, clock func() time.Time, metrics *MetricsService, logger *zap.Logger) *RetentionService {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{collections: collections, items: items, window: window, clock: clock, metrics: metrics, logger: logger}
}

// Sweep purges the owner's expired collections (with every item under them,
// whatever the items' own state) and then expired items owner-wide. The two
// passes are independent; per-document failures are collected in the report.
// A collection whose items could not all be purged is kept for the next sweep.
func (s *RetentionService) Sweep(ctx context.Context, owner string) (models.SweepReport, error) {
	if owner == "" {
		return models.SweepReport{}, appErrors.ErrAuthRequired
	}
	cutoff := s.clock().UTC().Add(-s.window)
	report := models.SweepReport{OwnerID: owner, Cutoff: cutoff}
	logger := s.logger.With(zap.String("owner_id", owner), zap.Time("cutoff", cutoff))

	collErr := s.sweepCollections(ctx, owner, cutoff, &report)
	itemErr := s.sweepItems(ctx, owner, cutoff, &report)

	s.metrics.RecordPurged(models.EntityCollection, report.CollectionsPurged)
	s.metrics.RecordPurged(models.EntityItem, report.ItemsPurged)
	logger.Info("retention sweep finished",
		zap.Int("collections_purged", report.CollectionsPurged),
		zap.Int("items_purged", report.ItemsPurged),
		zap.Int("errors", len(report.Errors)),
	)

	if collErr != nil && itemErr != nil {
		return report, collErr
	}
	return report, nil
}

func (s *RetentionService) sweepCollections(ctx context.Context, owner string, cutoff time.Time, report *models.SweepReport) error {
	collections, err := s.collections.ListDeleted(ctx, owner)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list deleted collections: %v", err))
		return err
	}
	for _, c := range collections {
		if !expired(c.DeletedAt, cutoff) {
			continue
		}
		items, err := s.items.ListByCollection(ctx, owner, c.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("list items of %s: %v", c.ID, err))
			continue
		}
		failed := 0
		for _, it := range items {
			if err := s.items.Purge(ctx, owner, c.ID, it.ID); err != nil {
				failed++
				report.Errors = append(report.Errors, fmt.Sprintf("purge item %s: %v", it.ID, err))
				continue
			}
			report.ItemsPurged++
		}
		// a collection outlives its items so none is left without a parent
		if failed > 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("collection %s kept: %d of %d items were not purged", c.ID, failed, len(items)))
			continue
		}
		if err := s.collections.Purge(ctx, owner, c.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("purge collection %s: %v", c.ID, err))
			continue
		}
		report.CollectionsPurged++
	}
	return nil
}

func (s *RetentionService) sweepItems(ctx context.Context, owner string, cutoff time.Time, report *models.SweepReport) error {
	items, err := s.items.ListDeleted(ctx, owner)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list deleted items: %v", err))
		return err
	}
	for _, it := range items {
		if !expired(it.DeletedAt, cutoff) {
			continue
		}
		if err := s.items.Purge(ctx, owner, it.CollectionID, it.ID); err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("purge item %s: %v", it.ID, err))
			continue
		}
		report.ItemsPurged++
	}
	return nil
}

func expired(deletedAt *time.Time, cutoff time.Time) bool {
	return deletedAt != nil && deletedAt.Before(cutoff)
}
