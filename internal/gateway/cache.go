package gateway

import (
	"context"
	"time"

	"github.com/MrWong99/verdex/pkg/statute"
)

// Entry wraps a cached [statute.StatuteRecord] with its expiry bookkeeping.
// Entries are created on the first successful live fetch, replaced wholesale
// on refresh, and removed only by explicit eviction — never silently.
type Entry struct {
	Record    statute.StatuteRecord
	ExpiresAt time.Time
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
// Expired entries remain retrievable: the gateway prefers stale text over a
// hard failure when the source is unreachable.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Cache is the statute cache contract the gateway depends on. The gateway is
// the only writer; implementations must be safe for concurrent use from
// multiple simultaneous verification runs sharing one gateway.
type Cache interface {
	// Get returns the entry for id, or (nil, nil) when absent. Expired
	// entries are returned too — the caller decides whether stale text is
	// acceptable.
	Get(ctx context.Context, id string) (*Entry, error)

	// Put stores or wholesale-replaces the entry for entry.Record.NormalizedID.
	Put(ctx context.Context, entry *Entry) error

	// Pin marks id as protected from capacity eviction. The gateway pins an
	// id for the duration of its single-flight fetch so the entry a stale
	// fallback may need cannot be evicted mid-resolution. Pin/Unpin calls
	// nest.
	Pin(id string)

	// Unpin releases one Pin on id.
	Unpin(id string)
}
