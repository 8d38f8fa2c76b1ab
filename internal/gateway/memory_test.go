package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrWong99/verdex/internal/gateway"
	"github.com/MrWong99/verdex/pkg/statute"
)

func entryFor(id string) *gateway.Entry {
	return &gateway.Entry{
		Record: statute.StatuteRecord{
			NormalizedID: id,
			FullText:     "text of " + id,
			FetchedAt:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		ExpiresAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryCache_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gateway.NewMemoryCache(0)
	if err := c.Put(ctx, entryFor("456.013")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get(ctx, "456.013")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Record.FullText != "text of 456.013" {
		t.Fatalf("Get returned %+v", got)
	}

	// The returned entry is a copy; mutating it must not poison the cache.
	got.Record.FullText = "tampered"
	again, _ := c.Get(ctx, "456.013")
	if again.Record.FullText != "text of 456.013" {
		t.Errorf("cache entry mutated through Get result")
	}

	missing, err := c.Get(ctx, "999.999")
	if err != nil || missing != nil {
		t.Errorf("Get(absent) = (%+v, %v), want (nil, nil)", missing, err)
	}
}

func TestMemoryCache_ExpiredEntriesRemainRetrievable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gateway.NewMemoryCache(0)
	e := entryFor("456.013")
	e.ExpiresAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := c.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get(ctx, "456.013")
	if err != nil || got == nil {
		t.Fatalf("Get(expired) = (%+v, %v), want the entry", got, err)
	}
	if !got.Expired(time.Now()) {
		t.Errorf("entry should report expired")
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gateway.NewMemoryCache(2)
	c.Put(ctx, entryFor("1.01"))
	c.Put(ctx, entryFor("2.02"))

	// Touch 1.01 so 2.02 becomes the eviction candidate.
	if e, _ := c.Get(ctx, "1.01"); e == nil {
		t.Fatal("1.01 missing before eviction")
	}
	c.Put(ctx, entryFor("3.03"))

	if e, _ := c.Get(ctx, "2.02"); e != nil {
		t.Errorf("2.02 should have been evicted")
	}
	if e, _ := c.Get(ctx, "1.01"); e == nil {
		t.Errorf("1.01 should have survived (recently used)")
	}
	if e, _ := c.Get(ctx, "3.03"); e == nil {
		t.Errorf("3.03 should be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestMemoryCache_PinBlocksEviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gateway.NewMemoryCache(1)
	c.Put(ctx, entryFor("1.01"))
	c.Pin("1.01")

	c.Put(ctx, entryFor("2.02"))
	if e, _ := c.Get(ctx, "1.01"); e == nil {
		t.Fatalf("pinned entry was evicted")
	}

	c.Unpin("1.01")
	// Unpin re-runs eviction; the over-capacity cache trims back down.
	if c.Len() > 1 {
		t.Errorf("Len = %d after Unpin, want at most 1", c.Len())
	}
}
