package analysers

import (
	"sync"
	"time"

	"github.com/Fullex26/noticehook/pkg/models"
)

// Deduplicator suppresses identical notices resubmitted within a window
type Deduplicator struct {
	mu     sync.Mutex
	seen   map[string]time.Time // dedup key -> first accepted
	window time.Duration
	now    func() time.Time
}

func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether notice should be forwarded. The first occurrence
// always passes; repeats pass again once the window has elapsed.
func (d *Deduplicator) Allow(n models.Notice) bool {
	key := dedupKey(n)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if first, ok := d.seen[key]; ok && now.Sub(first) <= d.window {
		return false
	}
	d.seen[key] = now
	return true
}

// Cleanup removes expired entries to prevent memory leak
func (d *Deduplicator) Cleanup() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for key, first := range d.seen {
		if now.Sub(first) > d.window {
			delete(d.seen, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func dedupKey(n models.Notice) string {
	return n.Channel + "\x00" + string(n.Type) + "\x00" + n.Title + "\x00" + n.Text + "\x00" + n.Image
}
