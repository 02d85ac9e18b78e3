package extdata

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_GetOrFetchIdempotent(t *testing.T) {
	c := NewCache(30 * time.Minute)

	calls := 0
	fetch := func() (any, error) {
		calls++
		return "payload", nil
	}

	first, err := c.GetOrFetch("key", fetch)
	require.NoError(t, err)
	second, err := c.GetOrFetch("key", fetch)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls, "fetch must run at most once within the TTL")
}

func TestCache_ExpiryTriggersRefetch(t *testing.T) {
	c := NewCache(30 * time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func() (any, error) {
		calls++
		return calls, nil
	}

	_, err := c.GetOrFetch("key", fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// Still fresh just before the TTL edge.
	now = now.Add(29 * time.Minute)
	_, err = c.GetOrFetch("key", fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	payload, err := c.GetOrFetch("key", fetch)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "expiry must trigger exactly one new fetch")
	require.Equal(t, 2, payload)
}

func TestCache_FetchErrorNotCached(t *testing.T) {
	c := NewCache(30 * time.Minute)

	calls := 0
	failing := func() (any, error) {
		calls++
		return nil, errors.New("upstream down")
	}

	_, err := c.GetOrFetch("key", failing)
	require.Error(t, err)
	require.Equal(t, 0, c.Len(), "errors must not be cached")

	// Next caller retries upstream.
	_, err = c.GetOrFetch("key", failing)
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(30 * time.Minute)

	calls := 0
	fetch := func() (any, error) {
		calls++
		return "payload", nil
	}

	_, err := c.GetOrFetch("a", fetch)
	require.NoError(t, err)
	_, err = c.GetOrFetch("b", fetch)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())

	_, err = c.GetOrFetch("a", fetch)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}
