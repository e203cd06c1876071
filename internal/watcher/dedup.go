package watcher

import (
	"sync"
	"time"
)

// Deduplicator remembers when each path was last accepted and suppresses
// repeats that arrive within the debounce window. Watch sources commonly
// report one logical edit as several notifications (create then write).
type Deduplicator struct {
	window time.Duration
	seen   map[string]time.Time
	mu     sync.Mutex
}

func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DebounceWindow
	}
	return &Deduplicator{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Accept reports whether the notification should be processed.
// Deletions are always accepted and forget the path; other kinds are
// suppressed when the path was accepted less than one window ago.
func (d *Deduplicator) Accept(path string, kind ChangeKind, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if kind == Deleted {
		delete(d.seen, path)
		return true
	}

	if last, ok := d.seen[path]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[path] = now
	return true
}

// Touch records now as the last accepted time for path.
func (d *Deduplicator) Touch(path string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[path] = now
}

// Forget drops the entry for path, e.g. the old name of a renamed file.
func (d *Deduplicator) Forget(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, path)
}

// Len returns the number of tracked paths.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
