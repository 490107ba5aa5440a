package store

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryPolicy bounds retries of idempotent store operations.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type retryingStore struct {
	inner  Store
	policy RetryPolicy
	logger *zap.Logger
}

type retryingBatchStore struct {
	*retryingStore
	batcher Batcher
}

// WithRetry wraps s so that Get, Set, Update, Delete, Query and batch commits
// are retried with exponential backoff. NotFound, invalid input and context
// cancellation are returned immediately. The result implements Batcher iff s does.
func WithRetry(s Store, policy RetryPolicy, logger *zap.Logger) Store {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rs := &retryingStore{inner: s, policy: policy, logger: logger}
	if b, ok := s.(Batcher); ok {
		return &retryingBatchStore{retryingStore: rs, batcher: b}
	}
	return rs
}

func (s *retryingStore) do(ctx context.Context, op, path string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.policy.MaxAttempts-1), retry.NewExponential(s.policy.BaseDelay))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		s.logger.Warn("store operation failed, retrying",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidPath),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (s *retryingStore) NewID() string { return s.inner.NewID() }

func (s *retryingStore) Get(ctx context.Context, path string) (Document, error) {
	var doc Document
	err := s.do(ctx, "get", path, func(ctx context.Context) error {
		var err error
		doc, err = s.inner.Get(ctx, path)
		return err
	})
	return doc, err
}

func (s *retryingStore) Set(ctx context.Context, path string, fields Fields) error {
	return s.do(ctx, "set", path, func(ctx context.Context) error {
		return s.inner.Set(ctx, path, fields)
	})
}

func (s *retryingStore) Update(ctx context.Context, path string, fields Fields) error {
	return s.do(ctx, "update", path, func(ctx context.Context) error {
		return s.inner.Update(ctx, path, fields)
	})
}

func (s *retryingStore) Delete(ctx context.Context, path string) error {
	return s.do(ctx, "delete", path, func(ctx context.Context) error {
		return s.inner.Delete(ctx, path)
	})
}

func (s *retryingStore) Query(ctx context.Context, q Query) ([]Document, error) {
	var docs []Document
	err := s.do(ctx, "query", q.Collection+q.Group, func(ctx context.Context) error {
		var err error
		docs, err = s.inner.Query(ctx, q)
		return err
	})
	return docs, err
}

// Subscribe is not retried; snapshot errors are delivered on the stream.
func (s *retryingStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	return s.inner.Subscribe(ctx, q)
}

func (s *retryingBatchStore) CommitBatch(ctx context.Context, writes []Write) error {
	return s.do(ctx, "batch", "", func(ctx context.Context) error {
		return s.batcher.CommitBatch(ctx, writes)
	})
}
