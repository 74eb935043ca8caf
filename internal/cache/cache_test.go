package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/prompted/pkg/redis"
)

type article struct {
	Title string `json:"title"`
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New[[]article]("news", "news:", NewMemory(), time.Minute, m)

	_, ok := c.Get(ctx, "all:1")
	assert.False(t, ok)

	c.Set(ctx, "all:1", []article{{Title: "GPT"}})
	got, ok := c.Get(ctx, "all:1")
	require.True(t, ok)
	assert.Equal(t, []article{{Title: "GPT"}}, got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("news")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("news")))
}

func TestGetCorruptValueIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Set(ctx, "k:x", "{not json", 0))
	c := New[article]("t", "k:", store, time.Minute, nil)
	_, ok := c.Get(ctx, "x")
	assert.False(t, ok)
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	ctx := context.Background()
	c := New[string]("daily", "daily:content:", NewMemory(), time.Minute, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, bool, error) {
		calls.Add(1)
		<-release
		return "generated", true, nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrCompute(ctx, "2025-04-01", compute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "generated", r)
	}

	v, hit, err := c.GetOrCompute(ctx, "2025-04-01", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "generated", v)
}

func TestGetOrComputeNoStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	c := New[string]("daily", "daily:content:", store, time.Minute, nil)

	v, hit, err := c.GetOrCompute(ctx, "d", func(context.Context) (string, bool, error) {
		return "fallback", false, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fallback", v)
	assert.Equal(t, 0, store.Len())
}

func TestGetOrComputeError(t *testing.T) {
	boom := errors.New("boom")
	c := New[string]("t", "t:", NewMemory(), time.Minute, nil)
	_, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, bool, error) {
		return "", false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	c := New[int]("t", "news:", store, time.Minute, nil)
	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	require.NoError(t, store.Set(ctx, "round:1", "x", 0))

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.True(t, pkgredis.IsNilError(err))
}

func TestMemorySetNX(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ok, err := m.SetNX(ctx, "k", 1, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.SetNX(ctx, "k", 2, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	got, _ := m.Get(ctx, "k")
	assert.Equal(t, "1", got)

	require.NoError(t, m.Del(ctx, "k"))
	assert.Equal(t, 0, m.Len())
}

var _ Store = (*pkgredis.Client)(nil)
