package cache

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trustwrapper/core/pkg/contracts"
)

// Entry is one cached verification result. The caller composes the key
// it is stored under (see Cache); the cache package itself treats keys
// as opaque.
type Entry struct {
	Verdict         contracts.Verdict
	Attestation     *contracts.Attestation
	CachedAt        time.Time
	MarketSampledAt time.Time // zero for Response decisions
}

// estimatedBytes is a rough, allocation-free size estimate used only
// to drive the byte budget; it need not be exact.
func estimatedBytes(e *Entry) int64 {
	if e == nil {
		return 0
	}
	base := int64(256 + len(e.Verdict.Explanations)*96)
	if e.Attestation != nil {
		base += int64(64 + len(e.Attestation.ProofBlob))
	}
	return base
}

// Cache is the fingerprint cache fronting C2's verification engine: a
// byte-budgeted LRU with TTL expiry, staleness invalidation against a
// MarketContext's sample time, and single-flight coalescing so
// concurrent requests for the same key compute the Verdict once. The
// Wrapper Runtime composes each key from a Decision's own fingerprint
// plus its policy_version and context_epoch, so neither a policy
// reload nor a new oracle tick can serve a Verdict computed under a
// superseded policy or market snapshot.
type Cache struct {
	store *lru[[32]byte, *Entry]
	ttl   time.Duration
	group singleflight.Group
}

// New creates a Cache with the given entry/byte budgets and TTL.
func New(maxEntries int, maxBytes int64, ttl time.Duration) *Cache {
	return &Cache{
		store: newLRU[[32]byte, *Entry](maxEntries, maxBytes, estimatedBytes),
		ttl:   ttl,
	}
}

// Get returns a non-expired, non-stale cache entry, evicting it first
// if it has passed its TTL or its market snapshot is older than
// maxMarketStaleness relative to now.
func (c *Cache) Get(fingerprint [32]byte, now time.Time, maxMarketStaleness time.Duration) (*Entry, bool) {
	e, ok := c.store.get(fingerprint)
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && now.Sub(e.CachedAt) > c.ttl {
		c.store.delete(fingerprint)
		return nil, false
	}
	if !e.MarketSampledAt.IsZero() && maxMarketStaleness > 0 && now.Sub(e.MarketSampledAt) > maxMarketStaleness {
		c.store.delete(fingerprint)
		return nil, false
	}
	return e, true
}

// Put inserts or overwrites the entry for fingerprint.
func (c *Cache) Put(fingerprint [32]byte, e *Entry) {
	c.store.put(fingerprint, e)
}

// Invalidate evicts fingerprint unconditionally.
func (c *Cache) Invalidate(fingerprint [32]byte) {
	c.store.delete(fingerprint)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int { return c.store.len() }

// GetOrCompute returns the cached Entry for fingerprint if still valid,
// otherwise calls compute exactly once across all concurrent callers
// sharing the same fingerprint (via singleflight) and caches the
// result before returning it.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	fingerprint [32]byte,
	now time.Time,
	maxMarketStaleness time.Duration,
	compute func(context.Context) (*Entry, error),
) (entry *Entry, hit bool, err error) {
	if e, ok := c.Get(fingerprint, now, maxMarketStaleness); ok {
		return e, true, nil
	}

	key := hex.EncodeToString(fingerprint[:])
	v, err, _ := c.group.Do(key, func() (any, error) {
		e, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(fingerprint, e)
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Entry), false, nil
}
