package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustwrapper/core/pkg/contracts"
)

// RedisMirror stores the latest ConsensusPrice per symbol in Redis,
// where every TrustWrapper instance in a deployment can read it.
// Satisfies Mirror. Engine only writes through it; it never reads the
// mirror back, so each instance still polls its own sources.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror wraps an existing *redis.Client. Keys are namespaced
// under prefix to share a Redis instance safely with unrelated data.
func NewRedisMirror(client *redis.Client, prefix string) *RedisMirror {
	return &RedisMirror{client: client, prefix: prefix}
}

func (m *RedisMirror) key(symbol string) string {
	return m.prefix + symbol
}

// Put mirrors price with a fixed five-minute TTL; callers that need an
// exact staleness bound still check ComputedAt themselves.
func (m *RedisMirror) Put(ctx context.Context, price contracts.ConsensusPrice) error {
	raw, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("oracle: redis encode consensus price: %w", err)
	}
	if err := m.client.Set(ctx, m.key(price.Symbol), raw, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("oracle: redis set consensus price: %w", err)
	}
	return nil
}

// Get fetches the mirrored ConsensusPrice for symbol, if present.
func (m *RedisMirror) Get(ctx context.Context, symbol string) (contracts.ConsensusPrice, bool, error) {
	raw, err := m.client.Get(ctx, m.key(symbol)).Bytes()
	if err == redis.Nil {
		return contracts.ConsensusPrice{}, false, nil
	}
	if err != nil {
		return contracts.ConsensusPrice{}, false, fmt.Errorf("oracle: redis get consensus price: %w", err)
	}
	var price contracts.ConsensusPrice
	if err := json.Unmarshal(raw, &price); err != nil {
		return contracts.ConsensusPrice{}, false, fmt.Errorf("oracle: redis decode consensus price: %w", err)
	}
	return price, true, nil
}
