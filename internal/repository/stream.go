package repository

import (
	"context"

	"github.com/noah-isme/notevault-api/internal/store"
)

// Snapshot is a decoded full result set pushed by a Stream.
type Snapshot[T any] struct {
	Entries []T
	Err     error
}

// Stream is a typed live query. Cancel is a hard stop: once it returns the
// channel is closed and nothing further is delivered.
type Stream[T any] struct {
	ch     chan Snapshot[T]
	sub    *store.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// Updates returns the push stream.
func (s *Stream[T]) Updates() <-chan Snapshot[T] {
	return s.ch
}

// Cancel stops the stream and waits for the decoder goroutine to exit.
func (s *Stream[T]) Cancel() {
	if s == nil {
		return
	}
	s.cancel()
	s.sub.Cancel()
	<-s.done
}

func subscribe[T any](ctx context.Context, st store.Store, q store.Query, decode func(store.Document) T) (*Stream[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	sub, err := st.Subscribe(ctx, q)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Stream[T]{
		ch:     make(chan Snapshot[T]),
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)
		for snap := range sub.Snapshots() {
			out := Snapshot[T]{Err: snap.Err}
			if snap.Err == nil {
				out.Entries = make([]T, 0, len(snap.Documents))
				for _, doc := range snap.Documents {
					out.Entries = append(out.Entries, decode(doc))
				}
			}
			select {
			case s.ch <- out:
			case <-ctx.Done():
				return
			}
		}
	}()

	return s, nil
}
