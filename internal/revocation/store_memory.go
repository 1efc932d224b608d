package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist is a process-local implementation for single-instance
// deployments and tests. Expired entries are reaped lazily on read.
type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	clock func() time.Time
}

// MemoryDenylistOption configures a MemoryDenylist.
type MemoryDenylistOption func(*MemoryDenylist)

// WithClock swaps the time source, letting tests step through expiry
// without sleeping.
func WithClock(clock func() time.Time) MemoryDenylistOption {
	return func(d *MemoryDenylist) {
		d.clock = clock
	}
}

// NewMemory constructs an in-memory denylist.
func NewMemory(opts ...MemoryDenylistOption) *MemoryDenylist {
	d := &MemoryDenylist{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Revoke records the token ID until its TTL lapses. Empty IDs are ignored so
// callers need not special-case tokens without a jti claim.
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	d.mu.Lock()
	d.entries[tokenID] = d.clock().Add(ttl)
	d.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token ID is currently denylisted.
func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	now := d.clock()

	d.mu.RLock()
	expiry, ok := d.entries[tokenID]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.Before(expiry) {
		return true, nil
	}

	// Expired: reap under the write lock, rechecking in case a concurrent
	// Revoke refreshed the entry in the meantime.
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.entries[tokenID]
	if !ok {
		return false, nil
	}
	if now.Before(current) {
		return true, nil
	}
	delete(d.entries, tokenID)
	return false, nil
}

// Len reports the number of live entries, counting ones awaiting lazy reap.
func (d *MemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
