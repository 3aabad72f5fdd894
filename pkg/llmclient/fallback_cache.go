package llmclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FallbackCache is a local JSON-file-backed cache of judge responses,
// keyed by a hash of the request. When the model provider is
// unreachable, ResilientClient serves the last answer this cache saw
// for the same request rather than failing the whole verification
// call.
type FallbackCache struct {
	mu       sync.RWMutex
	filePath string
	entries  map[string]Response
}

// NewFallbackCache opens (or creates) a fallback cache rooted at
// storageDir.
func NewFallbackCache(storageDir string) (*FallbackCache, error) {
	if err := os.MkdirAll(storageDir, 0o750); err != nil {
		return nil, fmt.Errorf("llmclient: create cache dir: %w", err)
	}

	c := &FallbackCache{
		filePath: filepath.Join(storageDir, "judge_fallback_cache.json"),
		entries:  make(map[string]Response),
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("llmclient: load fallback cache: %w", err)
	}
	return c, nil
}

func (c *FallbackCache) load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &c.entries)
}

func (c *FallbackCache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0o600)
}

// RequestKey derives the cache key for a chat request. Two requests
// with identical messages and sampling options collide on the same
// key, which is the point: the judge always asks with Temperature 0
// and a fixed Seed, so the same input should yield the same cached
// verdict.
func RequestKey(messages []Message, options *SamplingOptions) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(messages)
	_ = enc.Encode(options)
	return hex.EncodeToString(h.Sum(nil))
}

// Put stores resp under key.
func (c *FallbackCache) Put(ctx context.Context, key string, resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resp
	return c.save()
}

// Get retrieves a previously cached response for key. The second
// return value is false on a cache miss.
func (c *FallbackCache) Get(ctx context.Context, key string) (Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.entries[key]
	return resp, ok
}
