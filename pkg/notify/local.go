package notify

import (
	"context"
	"sync"
)

// LocalNotifier is an in-process change feed used by the memory store.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[string]map[int]chan struct{}
	nextID    int
}

// NewLocal constructs an empty in-process feed.
func NewLocal() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[string]map[int]chan struct{})}
}

// Publish wakes every listener of topic. It never blocks.
func (n *LocalNotifier) Publish(_ context.Context, topic string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.listeners[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Listen registers a listener on topic until stop is called.
func (n *LocalNotifier) Listen(_ context.Context, topic string) (<-chan struct{}, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan struct{}, 1)
	if n.listeners[topic] == nil {
		n.listeners[topic] = make(map[int]chan struct{})
	}
	n.listeners[topic][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners[topic], id)
			if len(n.listeners[topic]) == 0 {
				delete(n.listeners, topic)
			}
		})
	}
	return ch, stop, nil
}

// Listeners returns the number of active listeners on topic.
func (n *LocalNotifier) Listeners(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners[topic])
}
