package dataset

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	testingpkg "github.com/aristath/portfolio-sim/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedSource_HitsAfterFirstFetch(t *testing.T) {
	mock := testingpkg.NewMockPriceSource(testingpkg.NewPriceFixtures())
	cache := NewCachedSource(mock, time.Hour, zerolog.Nop())

	start, end := testingpkg.FixtureStart, testingpkg.FixtureStart.AddDate(1, 0, 0)
	first, err := cache.History(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	second, err := cache.History(context.Background(), "AAA", start, end)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.Calls("AAA"))
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, cache.Stats())

	// A different window is a different key
	_, err = cache.History(context.Background(), "AAA", start.AddDate(0, 0, 7), end)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls("AAA"))
}

func TestCachedSource_ExpiryAndPurge(t *testing.T) {
	mock := testingpkg.NewMockPriceSource(testingpkg.NewPriceFixtures())
	cache := NewCachedSource(mock, time.Minute, zerolog.Nop())

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	start, end := testingpkg.FixtureStart, testingpkg.FixtureStart.AddDate(1, 0, 0)
	_, err := cache.History(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	_, err = cache.History(context.Background(), "BBB", start, end)
	require.NoError(t, err)

	assert.Equal(t, 0, cache.Purge())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, cache.Purge())
	assert.Equal(t, 0, cache.Stats().Entries)

	_, err = cache.History(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls("AAA"))
}

func TestCachedSource_Clear(t *testing.T) {
	mock := testingpkg.NewMockPriceSource(testingpkg.NewPriceFixtures())
	cache := NewCachedSource(mock, time.Hour, zerolog.Nop())

	start, end := testingpkg.FixtureStart, testingpkg.FixtureStart.AddDate(1, 0, 0)
	_, err := cache.History(context.Background(), "CCC", start, end)
	require.NoError(t, err)

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestCachedSource_DoesNotCacheEmptyOrFailed(t *testing.T) {
	mock := testingpkg.NewMockPriceSource(map[string]domain.PriceSeries{})
	cache := NewCachedSource(mock, time.Hour, zerolog.Nop())

	start, end := testingpkg.FixtureStart, testingpkg.FixtureStart.AddDate(1, 0, 0)
	series, err := cache.History(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	assert.Empty(t, series)
	assert.Equal(t, 0, cache.Stats().Entries)

	mock.SetSeries("AAA", testingpkg.NewPriceFixtures()["AAA"])
	series, err = cache.History(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	assert.Len(t, series, 61)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCachedSource_SharesConcurrentFetches(t *testing.T) {
	mock := testingpkg.NewMockPriceSource(testingpkg.NewPriceFixtures())
	mock.SetDelay(200 * time.Millisecond)
	cache := NewCachedSource(mock, time.Hour, zerolog.Nop())

	start, end := testingpkg.FixtureStart, testingpkg.FixtureStart.AddDate(1, 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			series, err := cache.History(context.Background(), "AAA", start, end)
			assert.NoError(t, err)
			assert.Len(t, series, 61)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mock.Calls("AAA"))
}
