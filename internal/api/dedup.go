package api

import (
	"sync"
	"time"
)

const (
	// defaultReplayTTL is how long a submitted envelope hash is remembered.
	defaultReplayTTL = 10 * time.Minute

	// cleanupInterval is the interval between cleanup runs.
	cleanupInterval = 1 * time.Minute
)

// Dedup tracks recently submitted operation hashes so a signed envelope
// cannot be replayed within the TTL window. Entries expire automatically.
type Dedup struct {
	seen map[[32]byte]int64 // seen maps envelope hash to timestamp (unix nano)
	mu   sync.RWMutex       // mu protects the seen map
	ttl  int64              // ttl in nanoseconds
	stop chan struct{}      // stop signals the cleanup goroutine to stop
	wg   sync.WaitGroup     // wg waits for the cleanup goroutine
}

// NewDedup creates a new operation deduplication tracker.
func NewDedup() *Dedup {
	d := &Dedup{
		seen: make(map[[32]byte]int64),
		ttl:  int64(defaultReplayTTL),
		stop: make(chan struct{}),
	}

	d.startCleanup()

	return d
}

// Seen reports whether the hash was recorded within the TTL window.
// It does not record: a rejected operation must stay retryable, so the
// server records only after a successful dispatch.
func (d *Dedup) Seen(hash [32]byte) bool {
	now := time.Now().UnixNano()

	d.mu.RLock()
	ts, exists := d.seen[hash]
	d.mu.RUnlock()

	return exists && now-ts < d.ttl
}

// Record remembers the hash for the TTL window.
func (d *Dedup) Record(hash [32]byte) {
	now := time.Now().UnixNano()

	d.mu.Lock()
	d.seen[hash] = now
	d.mu.Unlock()
}

// Close stops the cleanup goroutine and releases resources.
func (d *Dedup) Close() {
	close(d.stop)
	d.wg.Wait()
}

// startCleanup starts the background cleanup goroutine.
func (d *Dedup) startCleanup() {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				d.cleanup()
			case <-d.stop:
				return
			}
		}
	}()
}

// cleanup removes expired entries from the seen map.
func (d *Dedup) cleanup() {
	now := time.Now().UnixNano()
	ttl := d.ttl

	d.mu.Lock()

	for hash, ts := range d.seen {
		if now-ts >= ttl {
			delete(d.seen, hash)
		}
	}

	d.mu.Unlock()
}
