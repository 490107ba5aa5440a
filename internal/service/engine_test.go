package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/notevault-api/internal/dto"
	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/store"
	"github.com/noah-isme/notevault-api/internal/store/memory"
	"github.com/noah-isme/notevault-api/pkg/config"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingStore fails writes to paths containing failOn, either every time or
// for the next remaining writes. beforeUpdate runs once, just before the
// first Update of its path.
type failingStore struct {
	*memory.Store
	mu           sync.Mutex
	failOn       string
	remaining    int
	failures     int
	hookPath     string
	beforeUpdate func()
}

func (f *failingStore) setFailOn(fragment string) {
	f.mu.Lock()
	f.failOn = fragment
	f.remaining = 0
	f.mu.Unlock()
}

// failNext fails the next n writes to paths containing fragment.
func (f *failingStore) failNext(fragment string, n int) {
	f.mu.Lock()
	f.failOn = fragment
	f.remaining = n
	f.mu.Unlock()
}

func (f *failingStore) failureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

// onUpdate installs fn to run once before the next Update of path.
func (f *failingStore) onUpdate(path string, fn func()) {
	f.mu.Lock()
	f.hookPath = path
	f.beforeUpdate = fn
	f.mu.Unlock()
}

func (f *failingStore) shouldFail(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "" || !strings.Contains(path, f.failOn) {
		return false
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			f.failOn = ""
		}
	}
	f.failures++
	return true
}

func (f *failingStore) takeHook(path string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeUpdate == nil || f.hookPath != path {
		return nil
	}
	fn := f.beforeUpdate
	f.beforeUpdate = nil
	return fn
}

func (f *failingStore) Update(ctx context.Context, path string, fields store.Fields) error {
	if hook := f.takeHook(path); hook != nil {
		hook()
	}
	if f.shouldFail(path) {
		return errors.New("permission denied")
	}
	return f.Store.Update(ctx, path, fields)
}

func (f *failingStore) Delete(ctx context.Context, path string) error {
	if f.shouldFail(path) {
		return errors.New("permission denied")
	}
	return f.Store.Delete(ctx, path)
}

func (f *failingStore) CommitBatch(ctx context.Context, writes []store.Write) error {
	for _, w := range writes {
		if f.shouldFail(w.Path) {
			return errors.New("permission denied")
		}
	}
	return f.Store.CommitBatch(ctx, writes)
}

type engine struct {
	t           *testing.T
	clock       *testClock
	store       *failingStore
	collections *repository.CollectionRepository
	items       *repository.ItemRepository
	cascade     *CascadeService
	collSvc     *CollectionService
	itemSvc     *ItemService
	reaper      *RetentionService
	views       *ViewService
	metrics     *MetricsService
}

func newEngine(t *testing.T, mode string) *engine {
	t.Helper()
	return newEngineWithRetryDelay(t, mode, time.Millisecond)
}

func newEngineWithRetryDelay(t *testing.T, mode string, retryDelay time.Duration) *engine {
	t.Helper()
	clock := newTestClock()
	st := &failingStore{Store: memory.New(memory.WithClock(clock.Now))}
	metrics := NewMetricsService()
	collections := repository.NewCollectionRepository(st, "", nil)
	items := repository.NewItemRepository(st, "", nil)

	var batcher store.Batcher = st
	cascade := NewCascadeService(collections, items, batcher, metrics, nil, CascadeServiceConfig{
		Mode:        mode,
		Concurrency: 4,
		Workers:     2,
		Retries:     2,
		RetryDelay:  retryDelay,
		Clock:       clock.Now,
	})
	cascade.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cascade.Stop(ctx)
	})

	guard := NewLockGuard(4)
	reaper := NewRetentionService(collections, items, 0, clock.Now, metrics, nil)
	return &engine{
		t:           t,
		clock:       clock,
		store:       st,
		collections: collections,
		items:       items,
		cascade:     cascade,
		collSvc:     NewCollectionService(collections, cascade, guard, nil, metrics, nil),
		itemSvc:     NewItemService(items, guard, nil, metrics, nil, clock.Now),
		reaper:      reaper,
		views:       NewViewService(collections, items, reaper, true, metrics, nil),
		metrics:     metrics,
	}
}

func (e *engine) createCollection(owner, name string) string {
	e.t.Helper()
	res := e.collSvc.Create(context.Background(), owner, dto.CollectionRequest{Name: name})
	require.True(e.t, res.Success, res.Message)
	return res.ID
}

func (e *engine) createItem(owner, collectionID, title string) string {
	e.t.Helper()
	res := e.itemSvc.Create(context.Background(), owner, collectionID, dto.ItemRequest{Title: title, Content: title + " body"})
	require.True(e.t, res.Success, res.Message)
	return res.ID
}

func (e *engine) collection(owner, id string) models.Collection {
	e.t.Helper()
	c, err := e.collections.Get(context.Background(), owner, id)
	require.NoError(e.t, err)
	return c
}

func (e *engine) itemsOf(owner, collectionID string) []models.Item {
	e.t.Helper()
	items, err := e.items.ListByCollection(context.Background(), owner, collectionID)
	require.NoError(e.t, err)
	return items
}

// settle waits for detached fan-out to finish.
func (e *engine) settle() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(e.t, e.cascade.Drain(ctx))
}

var allModes = []string{config.CascadeModeAtomic, config.CascadeModeJoin, config.CascadeModeDetached}
