package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustwrapper/core/pkg/contracts"
)

// RedisMirror shares fingerprint-cache entries across instances of the
// same deployment (Professional/Enterprise tier only; see pkg/tiers).
// Cache does not call it: a local miss does not consult the mirror and
// a local Put does not populate it; callers use Get and Put directly.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror wraps an existing *redis.Client. Keys are namespaced
// under prefix (e.g. "trustwrapper:cache:") to share a Redis instance
// safely with unrelated data.
func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, prefix: prefix, ttl: ttl}
}

type wireEntry struct {
	Verdict         contracts.Verdict      `json:"verdict"`
	Attestation     *contracts.Attestation `json:"attestation,omitempty"`
	CachedAt        time.Time              `json:"cached_at"`
	MarketSampledAt time.Time              `json:"market_sampled_at,omitempty"`
}

func (m *RedisMirror) key(fingerprint [32]byte) string {
	return m.prefix + hex.EncodeToString(fingerprint[:])
}

// Get fetches a mirrored entry, if present and not expired server-side
// (Redis TTL handles expiry; callers still apply their own staleness
// check against MarketSampledAt).
func (m *RedisMirror) Get(ctx context.Context, fingerprint [32]byte) (*Entry, bool, error) {
	raw, err := m.client.Get(ctx, m.key(fingerprint)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false, fmt.Errorf("cache: redis decode: %w", err)
	}
	return &Entry{
		Verdict:         w.Verdict,
		Attestation:     w.Attestation,
		CachedAt:        w.CachedAt,
		MarketSampledAt: w.MarketSampledAt,
	}, true, nil
}

// Put mirrors e under fingerprint with the mirror's configured TTL.
func (m *RedisMirror) Put(ctx context.Context, fingerprint [32]byte, e *Entry) error {
	w := wireEntry{
		Verdict:         e.Verdict,
		Attestation:     e.Attestation,
		CachedAt:        e.CachedAt,
		MarketSampledAt: e.MarketSampledAt,
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("cache: redis encode: %w", err)
	}
	if err := m.client.Set(ctx, m.key(fingerprint), raw, m.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}
