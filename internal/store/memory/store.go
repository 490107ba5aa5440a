// Package memory provides an in-process reactive document store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/notevault-api/internal/store"
	"github.com/noah-isme/notevault-api/pkg/notify"
)

// Store keeps documents in a map guarded by a RWMutex. Writes publish on the
// document root topic so subscriptions re-run.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]store.Fields
	feed   store.ChangeFeed
	clock  func() time.Time
	logger *zap.Logger
}

// Option customises the store.
type Option func(*Store)

// WithClock overrides the server clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithFeed overrides the change feed.
func WithFeed(feed store.ChangeFeed) Option {
	return func(s *Store) { s.feed = feed }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:   make(map[string]store.Fields),
		feed:   notify.NewLocal(),
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) NewID() string { return uuid.NewString() }

func (s *Store) Get(_ context.Context, path string) (store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return store.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.docs[path]
	if !ok {
		return store.Document{}, fmt.Errorf("get %s: %w", path, store.ErrNotFound)
	}
	return store.Document{Path: path, ID: store.Base(path), Fields: fields.Clone()}, nil
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[path] = store.ResolveFields(fields, s.clock())
	s.mu.Unlock()
	s.publish(ctx, path)
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields store.Fields) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	err := s.applyUpdate(path, fields, s.clock())
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(ctx, path)
	return nil
}

func (s *Store) applyUpdate(path string, fields store.Fields, now time.Time) error {
	current, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("update %s: %w", path, store.ErrNotFound)
	}
	merge, removed := store.SplitPatch(fields, now)
	next := current.Clone()
	for k, v := range merge {
		next[k] = v
	}
	for _, k := range removed {
		delete(next, k)
	}
	s.docs[path] = next
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	_, existed := s.docs[path]
	delete(s.docs, path)
	s.mu.Unlock()
	if existed {
		s.publish(ctx, path)
	}
	return nil
}

func (s *Store) Query(_ context.Context, q store.Query) ([]store.Document, error) {
	if q.Collection == "" && q.Group == "" {
		return nil, store.ErrInvalidQuery
	}
	s.mu.RLock()
	docs := make([]store.Document, 0)
	for path, fields := range s.docs {
		if q.Matches(path, fields) {
			docs = append(docs, store.Document{Path: path, ID: store.Base(path), Fields: fields.Clone()})
		}
	}
	s.mu.RUnlock()
	store.SortDocuments(docs, q.OrderBy)
	return docs, nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (*store.Subscription, error) {
	topic, err := q.Topic()
	if err != nil {
		return nil, err
	}
	return store.Watch(ctx, s.feed, topic, func(ctx context.Context) ([]store.Document, error) {
		return s.Query(ctx, q)
	})
}

// CommitBatch applies writes all-or-nothing under one lock.
func (s *Store) CommitBatch(ctx context.Context, writes []store.Write) error {
	for _, w := range writes {
		if err := store.ValidateDocPath(w.Path); err != nil {
			return err
		}
	}

	s.mu.Lock()
	snapshot := make(map[string]store.Fields, len(writes))
	for _, w := range writes {
		if _, seen := snapshot[w.Path]; !seen {
			snapshot[w.Path] = s.docs[w.Path]
		}
	}
	now := s.clock()
	var err error
	for _, w := range writes {
		switch w.Op {
		case store.OpSet:
			s.docs[w.Path] = store.ResolveFields(w.Fields, now)
		case store.OpUpdate:
			err = s.applyUpdate(w.Path, w.Fields, now)
		case store.OpDelete:
			delete(s.docs, w.Path)
		default:
			err = fmt.Errorf("batch: unknown op %d", w.Op)
		}
		if err != nil {
			break
		}
	}
	if err != nil {
		for path, fields := range snapshot {
			if fields == nil {
				delete(s.docs, path)
			} else {
				s.docs[path] = fields
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	topics := make(map[string]struct{})
	for _, w := range writes {
		topics[store.Root(w.Path)] = struct{}{}
	}
	for topic := range topics {
		s.publishTopic(ctx, topic)
	}
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) publish(ctx context.Context, path string) {
	s.publishTopic(ctx, store.Root(path))
}

func (s *Store) publishTopic(ctx context.Context, topic string) {
	if err := s.feed.Publish(ctx, topic); err != nil {
		s.logger.Warn("change feed publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
