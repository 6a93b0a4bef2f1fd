package telegram

import (
	"sync"
	"time"
)

// Dedup remembers recently seen update IDs. Telegram re-delivers webhook
// updates until they are acknowledged, so the webhook path can receive the
// same update more than once.
type Dedup struct {
	mu   sync.Mutex
	seen map[int]time.Time
	ttl  time.Duration
	stop chan struct{}
}

func NewDedup(ttl time.Duration) *Dedup {
	d := &Dedup{
		seen: make(map[int]time.Time),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go d.cleanup()
	return d
}

// IsDuplicate records updateID and reports whether it was seen within the TTL.
func (d *Dedup) IsDuplicate(updateID int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[updateID]; ok {
		return true
	}
	d.seen[updateID] = time.Now()
	return false
}

// Close stops the background cleanup goroutine.
func (d *Dedup) Close() {
	close(d.stop)
}

func (d *Dedup) cleanup() {
	ticker := time.NewTicker(d.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}
		d.mu.Lock()
		cutoff := time.Now().Add(-d.ttl)
		for id, seenAt := range d.seen {
			if seenAt.Before(cutoff) {
				delete(d.seen, id)
			}
		}
		d.mu.Unlock()
	}
}
