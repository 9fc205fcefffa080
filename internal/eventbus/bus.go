package eventbus

import (
	"sync"

	"github.com/Fullex26/noticehook/pkg/models"
)

// Handler is a function that receives notices
type Handler func(notice models.Notice)

// Bus is a simple in-process pub/sub bus keyed by topic
type Bus struct {
	mu       sync.RWMutex
	handlers map[models.Topic][]Handler
	inflight sync.WaitGroup
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		handlers: make(map[models.Topic][]Handler),
	}
}

// Subscribe registers a handler for one topic
func (b *Bus) Subscribe(topic models.Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Subscribers returns how many handlers listen on topic
func (b *Bus) Subscribers(topic models.Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Publish sends a notice to all subscribers of topic.
// Each handler runs in its own goroutine so a slow one never blocks the source.
func (b *Bus) Publish(topic models.Topic, notice models.Notice) {
	for _, h := range b.snapshot(topic) {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			h(notice)
		}(h)
	}
}

// Wait blocks until every handler started by Publish has returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// PublishSync runs every handler on the caller's goroutine, in
// subscription order, and returns once they have all finished.
func (b *Bus) PublishSync(topic models.Topic, notice models.Notice) {
	for _, h := range b.snapshot(topic) {
		h(notice)
	}
}

func (b *Bus) snapshot(topic models.Topic) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[topic]))
	copy(hs, b.handlers[topic])
	return hs
}
