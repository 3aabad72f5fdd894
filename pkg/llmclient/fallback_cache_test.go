package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackCachePutThenGetRoundTrips(t *testing.T) {
	cache, err := NewFallbackCache(t.TempDir())
	require.NoError(t, err)

	msgs := []Message{{Role: "user", Content: "is this claim accurate?"}}
	opts := &SamplingOptions{Temperature: 0, Seed: 7}
	key := RequestKey(msgs, opts)

	require.NoError(t, cache.Put(context.Background(), key, Response{Content: "yes"}))

	got, ok := cache.Get(context.Background(), key)
	require.True(t, ok)
	require.Equal(t, "yes", got.Content)
}

func TestFallbackCacheGetMissReturnsFalse(t *testing.T) {
	cache, err := NewFallbackCache(t.TempDir())
	require.NoError(t, err)

	_, ok := cache.Get(context.Background(), "unseen-key")
	require.False(t, ok)
}

func TestFallbackCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFallbackCache(dir)
	require.NoError(t, err)

	msgs := []Message{{Role: "user", Content: "reload me"}}
	key := RequestKey(msgs, nil)
	require.NoError(t, cache.Put(context.Background(), key, Response{Content: "persisted"}))

	reopened, err := NewFallbackCache(dir)
	require.NoError(t, err)
	got, ok := reopened.Get(context.Background(), key)
	require.True(t, ok)
	require.Equal(t, "persisted", got.Content)
}

func TestRequestKeyIsStableForIdenticalRequests(t *testing.T) {
	msgs := []Message{{Role: "user", Content: "same input"}}
	opts := &SamplingOptions{Temperature: 0, Seed: 1}
	require.Equal(t, RequestKey(msgs, opts), RequestKey(msgs, opts))
}

func TestRequestKeyDiffersForDifferentInputs(t *testing.T) {
	opts := &SamplingOptions{Temperature: 0, Seed: 1}
	a := RequestKey([]Message{{Role: "user", Content: "claim A"}}, opts)
	b := RequestKey([]Message{{Role: "user", Content: "claim B"}}, opts)
	require.NotEqual(t, a, b)
}
