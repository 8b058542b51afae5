package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
)

func TestResultCacheAddAndGet(t *testing.T) {
	c := New[string]("test_add_get", 10, time.Minute)

	_, ok := c.Get("key")
	assert.False(t, ok)

	c.Add("key", "value")
	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(monitoring.CacheHits.WithLabelValues("test_add_get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitoring.CacheMisses.WithLabelValues("test_add_get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitoring.CacheSize.WithLabelValues("test_add_get")))
}

func TestResultCacheEviction(t *testing.T) {
	c := New[int]("test_eviction", 2, 0)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3) // evicts "a"

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestResultCacheExpiration(t *testing.T) {
	c := New[string]("test_expiration", 10, 50*time.Millisecond)
	c.Add("temp", "data")

	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("temp")
	assert.False(t, ok)
}

func TestResultCacheDo(t *testing.T) {
	c := New[int]("test_do", 10, time.Minute)

	calls := 0
	fn := func() (int, error) {
		calls++
		return 42, nil
	}

	v, cached, err := c.Do("k", fn)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, v)

	v, cached, err = c.Do("k", fn)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestResultCacheDoDoesNotCacheErrors(t *testing.T) {
	c := New[int]("test_do_errors", 10, time.Minute)
	boom := errors.New("boom")

	_, _, err := c.Do("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, cached, err := c.Do("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 7, v)
}

func TestResultCacheDoCollapsesConcurrentCalls(t *testing.T) {
	c := New[int]("test_do_concurrent", 10, time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			v, _, err := c.Do("same", fn)
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(n))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	assert.Equal(t, 1, c.Len())
}

func TestKeyOf(t *testing.T) {
	type req struct {
		Origin string
		Level  float64
	}

	a, err := KeyOf(req{"nyc", 40})
	require.NoError(t, err)
	b, err := KeyOf(req{"nyc", 40})
	require.NoError(t, err)
	c, err := KeyOf(req{"nyc", 41})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = KeyOf(func() {})
	assert.Error(t, err)
}
