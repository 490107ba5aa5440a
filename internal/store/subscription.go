package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Snapshot is one push of a subscription: the full current result set.
type Snapshot struct {
	Documents []Document
	Err       error
	ReadAt    time.Time
}

// Subscription is a live query handle. Cancel is a hard stop: once it
// returns, no further snapshot is delivered and the channel is closed.
type Subscription struct {
	ch     chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshots returns the push stream.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.ch
}

// Cancel stops the subscription and waits for its goroutine to exit.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// RunFunc executes the subscription query once.
type RunFunc func(ctx context.Context) ([]Document, error)

// Watch runs fn immediately and after every notification on topic, pushing
// each result set. Notifications arriving while a push is pending coalesce
// into one re-run.
func Watch(ctx context.Context, feed ChangeFeed, topic string, fn RunFunc) (*Subscription, error) {
	if feed == nil {
		return nil, fmt.Errorf("watch %s: no change feed configured", topic)
	}
	ctx, cancel := context.WithCancel(ctx)
	changes, stop, err := feed.Listen(ctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listen %s: %w", topic, err)
	}

	sub := &Subscription{
		ch:     make(chan Snapshot),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.ch)
		defer stop()

		push := func() bool {
			docs, err := fn(ctx)
			if ctx.Err() != nil {
				return false
			}
			snap := Snapshot{Documents: docs, Err: err, ReadAt: time.Now().UTC()}
			select {
			case sub.ch <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				if !push() {
					return
				}
			}
		}
	}()

	return sub, nil
}

// SortDocuments orders docs in place by the query ordering. Timestamps are
// compared chronologically, strings lexically; ties break on path.
func SortDocuments(docs []Document, order Order) {
	if order.Field == "" {
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareField(docs[i].Fields, docs[j].Fields, order.Field)
		if c == 0 {
			c = strings.Compare(docs[i].Path, docs[j].Path)
		}
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b Fields, key string) int {
	if ta, tb := a.Time(key), b.Time(key); ta != nil && tb != nil {
		return ta.Compare(*tb)
	}
	return strings.Compare(fmt.Sprint(a[key]), fmt.Sprint(b[key]))
}
