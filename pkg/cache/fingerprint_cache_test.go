package cache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/cache"
	"github.com/trustwrapper/core/pkg/contracts"
)

func fp(b byte) [32]byte {
	var f [32]byte
	f[0] = b
	return f
}

func TestPutGetHit(t *testing.T) {
	c := cache.New(16, 1<<20, time.Minute)
	now := time.Now()

	e := &cache.Entry{Verdict: contracts.Verdict{Recommendation: contracts.RecommendApprove}, CachedAt: now}
	c.Put(fp(1), e)

	got, ok := c.Get(fp(1), now, 0)
	require.True(t, ok)
	require.Equal(t, contracts.RecommendApprove, got.Verdict.Recommendation)
	require.Equal(t, 1, c.Len())
}

func TestGetMissingReturnsFalse(t *testing.T) {
	c := cache.New(16, 1<<20, time.Minute)
	_, ok := c.Get(fp(9), time.Now(), 0)
	require.False(t, ok)
}

func TestGetEvictsExpiredEntry(t *testing.T) {
	c := cache.New(16, 1<<20, 10*time.Second)
	now := time.Now()
	c.Put(fp(1), &cache.Entry{CachedAt: now})

	_, ok := c.Get(fp(1), now.Add(20*time.Second), 0)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestGetEvictsStaleMarketSnapshot(t *testing.T) {
	c := cache.New(16, 1<<20, time.Hour)
	now := time.Now()
	c.Put(fp(1), &cache.Entry{CachedAt: now, MarketSampledAt: now.Add(-5 * time.Minute)})

	_, ok := c.Get(fp(1), now, time.Minute)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestInvalidateRemovesEntryUnconditionally(t *testing.T) {
	c := cache.New(16, 1<<20, time.Hour)
	now := time.Now()
	c.Put(fp(1), &cache.Entry{CachedAt: now})

	c.Invalidate(fp(1))
	_, ok := c.Get(fp(1), now, 0)
	require.False(t, ok)
}

func TestGetOrComputeCachesResultOnMiss(t *testing.T) {
	c := cache.New(16, 1<<20, time.Hour)
	now := time.Now()
	var calls int32

	compute := func(ctx context.Context) (*cache.Entry, error) {
		atomic.AddInt32(&calls, 1)
		return &cache.Entry{CachedAt: now}, nil
	}

	e, hit, err := c.GetOrCompute(context.Background(), fp(1), now, 0, compute)
	require.NoError(t, err)
	require.False(t, hit)
	require.NotNil(t, e)

	e2, hit2, err2 := c.GetOrCompute(context.Background(), fp(1), now, 0, compute)
	require.NoError(t, err2)
	require.True(t, hit2)
	require.NotNil(t, e2)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrComputeCoalescesConcurrentCallers(t *testing.T) {
	c := cache.New(16, 1<<20, time.Hour)
	now := time.Now()
	var calls int32
	release := make(chan struct{})

	compute := func(ctx context.Context) (*cache.Entry, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &cache.Entry{CachedAt: now}, nil
	}

	const n = 8
	results := make(chan *cache.Entry, n)
	for i := 0; i < n; i++ {
		go func() {
			e, _, err := c.GetOrCompute(context.Background(), fp(1), now, 0, compute)
			require.NoError(t, err)
			results <- e
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < n; i++ {
		<-results
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	c := cache.New(16, 1<<20, time.Hour)
	wantErr := errors.New("boom")

	_, hit, err := c.GetOrCompute(context.Background(), fp(1), time.Now(), 0, func(ctx context.Context) (*cache.Entry, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.False(t, hit)
	require.Equal(t, 0, c.Len())
}
