package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyNormalization(t *testing.T) {
	cons := Constraints{YearMin: 2020, YearMax: 2024, TopK: 5}

	base := cacheKey("Climate Impact on Soil", cons)
	assert.Equal(t, base, cacheKey("climate impact on soil", cons))
	assert.Equal(t, base, cacheKey("  climate   impact on soil ", cons))

	assert.NotEqual(t, base, cacheKey("climate impact on soil", Constraints{YearMin: 2019, YearMax: 2024, TopK: 5}))
	assert.NotEqual(t, base, cacheKey("climate impact on soil", Constraints{YearMin: 2020, YearMax: 2024, TopK: 3}))
	assert.NotEqual(t, base, cacheKey("climate impact on water", cons))
}

func TestResultCacheRoundTrip(t *testing.T) {
	c := newResultCache(8, time.Minute)

	results := []*Result{{ScoredResult: ScoredResult{DocID: "a", FinalScore: 0.9}}}
	key := cacheKey("query", Constraints{TopK: 10})

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Add(key, results)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, results, got)

	c.Purge()
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestResultCacheDisabled(t *testing.T) {
	c := newResultCache(0, time.Minute)

	key := cacheKey("query", Constraints{TopK: 10})
	c.Add(key, []*Result{{ScoredResult: ScoredResult{DocID: "a"}}})

	_, ok := c.Get(key)
	assert.False(t, ok)
	c.Purge()
}

func TestResultCacheExpiry(t *testing.T) {
	c := newResultCache(8, 20*time.Millisecond)

	key := cacheKey("query", Constraints{TopK: 10})
	c.Add(key, []*Result{{ScoredResult: ScoredResult{DocID: "a"}}})

	_, ok := c.Get(key)
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get(key)
	assert.False(t, ok)
}
