// Package scancache bounds the cost of Bitcoin's full-UTXO scan: results are
// cached per address keyed by the chain tip they were computed against, and
// concurrent scans for the same address coalesce into one RPC call.
package scancache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ecency/vision-api/internal/cache"
	"github.com/ecency/vision-api/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// TTL is the coarse upper bound on entry age; a tip change invalidates
// earlier, whichever is stricter.
const TTL = 10 * time.Minute

// Entry is a completed scan result. Entries are written only by a successful
// scan completion, never partially. Raw carries the node's scan payload so
// coalesced and cached callers keep their diagnostics.
type Entry struct {
	Tip        string
	Balance    string
	Raw        json.RawMessage
	ObservedAt time.Time
}

// Cache is safe for concurrent use. The in-flight invariant (at most one
// outstanding scan per address, process-wide) is enforced by the
// singleflight group.
type Cache struct {
	entries *cache.LRU[string, Entry]
	group   singleflight.Group
}

func New(capacity int) *Cache {
	return &Cache{
		entries: cache.NewLRU[string, Entry](capacity, TTL),
	}
}

// SetClock replaces the underlying cache's time source for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.entries.SetClock(now)
}

// Lookup returns the cached balance for address if it was computed against
// the given tip and is within the TTL.
func (c *Cache) Lookup(address, tip string) (Entry, bool) {
	entry, ok := c.entries.Get(address)
	if !ok || entry.Tip != tip {
		metrics.ScanCacheMisses.Inc()
		return Entry{}, false
	}
	metrics.ScanCacheHits.Inc()
	return entry, true
}

// Scan runs fn for the address unless an identical scan is already in
// flight, in which case the caller awaits and shares that scan's result.
// A successful result is stored against tip; failures are not cached and
// clear the in-flight marker so retries are possible.
func (c *Cache) Scan(ctx context.Context, address, tip string, fn func() (string, json.RawMessage, error)) (Entry, error) {
	result, err, shared := c.group.Do(address, func() (interface{}, error) {
		balance, raw, err := fn()
		if err != nil {
			return nil, err
		}
		entry := Entry{Tip: tip, Balance: balance, Raw: raw, ObservedAt: time.Now()}
		c.entries.Put(address, entry)
		return entry, nil
	})
	if shared {
		metrics.ScanDedupShared.Inc()
	}
	if err != nil {
		return Entry{}, err
	}
	if ctx.Err() != nil {
		return Entry{}, ctx.Err()
	}
	return result.(Entry), nil
}
