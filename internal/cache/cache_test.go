package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func countingProducer(value string) (Producer, *int) {
	calls := 0
	return func(ctx context.Context) (any, error) {
		calls++
		return value, nil
	}, &calls
}

func TestWrapInvokesProducerOnceWithinTTL(t *testing.T) {
	c, now := newTestCache(t)
	producer, calls := countingProducer("report-a")
	key := Key{Name: "distribution", Variant: "league:2026-07"}

	first, err := c.Wrap(context.Background(), key, 24*time.Hour, producer)
	require.NoError(t, err)

	*now = now.Add(86399 * time.Second)
	second, err := c.Wrap(context.Background(), key, 24*time.Hour, producer)
	require.NoError(t, err)

	assert.Equal(t, 1, *calls)
	assert.JSONEq(t, string(first), string(second))
}

func TestWrapRecomputesAfterExpiry(t *testing.T) {
	c, now := newTestCache(t)
	producer, calls := countingProducer("report-a")
	key := Key{Name: "distribution", Variant: "league:2026-07"}

	_, err := c.Wrap(context.Background(), key, 24*time.Hour, producer)
	require.NoError(t, err)

	*now = now.Add(86401 * time.Second)
	_, err = c.Wrap(context.Background(), key, 24*time.Hour, producer)
	require.NoError(t, err)

	assert.Equal(t, 2, *calls)
}

func TestWrapDoesNotCacheProducerFailure(t *testing.T) {
	c, _ := newTestCache(t)
	key := Key{Name: "top_players"}

	boom := errors.New("query timeout")
	_, err := c.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// The next call retries the producer; no negative entry was stored.
	value, err := c.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"recovered"`, string(value))
}

func TestWrapFailureLeavesPriorEntryUntouched(t *testing.T) {
	c, now := newTestCache(t)
	key := Key{Name: "events"}

	_, err := c.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return "old", nil
	})
	require.NoError(t, err)

	// Expire the entry, then fail the recomputation.
	*now = now.Add(2 * time.Hour)
	_, err = c.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)

	// Rolling the clock back shows the old entry survived the failure.
	*now = now.Add(-2 * time.Hour)
	value, err := c.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		t.Fatal("producer should not run for a fresh entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"old"`, string(value))
}

func TestExpirySurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	c1, err := New(dir)
	require.NoError(t, err)

	stored := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	c1.now = func() time.Time { return stored }

	key := Key{Name: "distribution", Variant: "league:2026-07"}
	_, err = c1.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return "persisted", nil
	})
	require.NoError(t, err)

	// A new instance over the same directory serves the entry while
	// fresh and rejects it once the persisted timestamp has aged out.
	c2, err := New(dir)
	require.NoError(t, err)
	c2.now = func() time.Time { return stored.Add(30 * time.Minute) }

	value, err := c2.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		t.Fatal("producer should not run before expiry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"persisted"`, string(value))

	c2.now = func() time.Time { return stored.Add(2 * time.Hour) }
	calls := 0
	_, err = c2.Wrap(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		calls++
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDistinctKeysAreIndependent(t *testing.T) {
	c, _ := newTestCache(t)

	a, err := c.Wrap(context.Background(), Key{Name: "distribution", Variant: "league:2026-06"}, time.Hour,
		func(ctx context.Context) (any, error) { return "june", nil })
	require.NoError(t, err)

	b, err := c.Wrap(context.Background(), Key{Name: "distribution", Variant: "league:2026-07"}, time.Hour,
		func(ctx context.Context) (any, error) { return "july", nil })
	require.NoError(t, err)

	assert.JSONEq(t, `"june"`, string(a))
	assert.JSONEq(t, `"july"`, string(b))
}

func TestConcurrentMissesInvokeProducerOnce(t *testing.T) {
	c, _ := newTestCache(t)
	key := Key{Name: "top_players"}

	var calls int
	var mu sync.Mutex
	release := make(chan struct{})

	producer := func(ctx context.Context) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return "once", nil
	}

	var wg sync.WaitGroup
	results := make([]json.RawMessage, 4)
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.Wrap(context.Background(), key, time.Hour, producer)
			assert.NoError(t, err)
			results[i] = value
		}()
	}

	// Give all callers time to join the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls)
	for _, value := range results {
		assert.JSONEq(t, `"once"`, string(value))
	}
}
