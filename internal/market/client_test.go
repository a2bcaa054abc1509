package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpfrog/pepeagent/internal/config"
)

const pairJSON = `{
	"pairs": [{
		"priceUsd": "0.00001234",
		"priceChange": {"h1": 2.5, "h24": 15.0},
		"volume": {"h24": 250000},
		"liquidity": {"usd": 80000},
		"marketCap": 1200000
	}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MarketConfig{
		BaseURL:     srv.URL,
		SubjectPair: "PAIRADDR",
		CacheTTL:    5 * time.Minute,
		RPS:         1000,
		Burst:       1000,
	}, NewMemoryCache())
}

func TestSnapshotParsesPair(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "PAIRADDR")
		w.Write([]byte(pairJSON))
	})

	snap := c.Snapshot(context.Background())
	require.False(t, snap.Degraded)
	assert.InDelta(t, 0.00001234, snap.PriceUSD, 1e-12)
	assert.InDelta(t, 15.0, snap.Change24h, 0.001)
	assert.InDelta(t, 80000.0, snap.Liquidity, 0.001)
}

func TestSnapshotServedFromCache(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(pairJSON))
	})

	first := c.Snapshot(context.Background())
	second := c.Snapshot(context.Background())
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSnapshotDegradesOnFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	snap := c.Snapshot(context.Background())
	assert.True(t, snap.Degraded)
	assert.Contains(t, PromptContext(snap), "unavailable")
}

func TestNarrativeBands(t *testing.T) {
	assert.Contains(t, Narrative(Snapshot{Change24h: 60}), "sending")
	assert.Contains(t, Narrative(Snapshot{Change24h: 15}), "pumping")
	assert.Contains(t, Narrative(Snapshot{Change24h: 0}), "crabbing")
	assert.Contains(t, Narrative(Snapshot{Change24h: -20}), "dipping")
	assert.Contains(t, Narrative(Snapshot{Change24h: -60}), "max pain")
}

func TestLowLiquidityFlag(t *testing.T) {
	assert.True(t, LowLiquidity(Snapshot{Liquidity: 5000}))
	assert.False(t, LowLiquidity(Snapshot{Liquidity: 50000}))
	assert.False(t, LowLiquidity(Snapshot{Degraded: true, Liquidity: 5000}))
}

func TestMemoryCacheTTL(t *testing.T) {
	cache := NewMemoryCache()
	base := time.Now()
	cache.now = func() time.Time { return base }

	cache.Set(context.Background(), "k", "v", time.Minute)
	value, ok := cache.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, "v", value)

	cache.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = cache.Get(context.Background(), "k")
	assert.False(t, ok)
}
