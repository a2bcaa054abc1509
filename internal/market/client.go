// Package market fetches token market data from DexScreener and distills
// it into prompt-ready context. Upstream calls sit behind a rate limiter,
// a circuit breaker and a TTL cache; when everything fails the package
// degrades to static context rather than blocking content generation.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pumpfrog/pepeagent/internal/config"
)

// Snapshot is one observation of the subject token's market state.
type Snapshot struct {
	PriceUSD  float64   `json:"price_usd"`
	Change1h  float64   `json:"change_1h"`
	Change24h float64   `json:"change_24h"`
	Volume24h float64   `json:"volume_24h"`
	Liquidity float64   `json:"liquidity"`
	MarketCap float64   `json:"market_cap"`
	FetchedAt time.Time `json:"fetched_at"`
	FromCache bool      `json:"-"`
	Degraded  bool      `json:"-"` // static fallback, no live data
}

// Client fetches and caches market data for one pair.
type Client struct {
	baseURL     string
	subjectPair string
	searchQuery string
	cacheTTL    time.Duration
	screenTTL   time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	cache       Cache
}

const snapshotKey = "market:snapshot"

// NewClient builds a market client. cache may be memory or Redis backed.
func NewClient(cfg config.MarketConfig, cache Cache) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout == 0 {
		breakerTimeout = time.Minute
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 2
	}

	screenTTL := cfg.ScreenTTL
	if screenTTL == 0 {
		screenTTL = 10 * time.Minute
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		subjectPair: cfg.SubjectPair,
		searchQuery: cfg.SearchQuery,
		cacheTTL:    cfg.CacheTTL,
		screenTTL:   screenTTL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "dexscreener",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			Timeout: breakerTimeout,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("Circuit breaker state change")
			},
		}),
		cache: cache,
	}
}

type pairResponse struct {
	Pairs []struct {
		PriceUSD    string `json:"priceUsd"`
		PriceChange struct {
			H1  float64 `json:"h1"`
			H24 float64 `json:"h24"`
		} `json:"priceChange"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		MarketCap float64 `json:"marketCap"`
	} `json:"pairs"`
}

// Snapshot returns current market data, serving from cache inside the
// TTL and falling back to a degraded static snapshot on failure.
func (c *Client) Snapshot(ctx context.Context) Snapshot {
	if cached, ok := c.cache.Get(ctx, snapshotKey); ok {
		var snap Snapshot
		if json.Unmarshal([]byte(cached), &snap) == nil {
			snap.FromCache = true
			return snap
		}
	}

	snap, err := c.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Market fetch failed, using degraded context")
		return Snapshot{Degraded: true, FetchedAt: time.Now()}
	}

	if raw, err := json.Marshal(snap); err == nil {
		c.cache.Set(ctx, snapshotKey, string(raw), c.cacheTTL)
	}
	return snap
}

func (c *Client) fetch(ctx context.Context) (Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Snapshot{}, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchPair(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return result.(Snapshot), nil
}

func (c *Client) fetchPair(ctx context.Context) (Snapshot, error) {
	u := fmt.Sprintf("%s/latest/dex/pairs/solana/%s", c.baseURL, c.subjectPair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Snapshot{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Snapshot{}, err
	}

	var parsed pairResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Snapshot{}, fmt.Errorf("decode pair response: %w", err)
	}
	if len(parsed.Pairs) == 0 {
		return Snapshot{}, fmt.Errorf("pair %s not found", c.subjectPair)
	}

	pair := parsed.Pairs[0]
	price, _ := strconv.ParseFloat(pair.PriceUSD, 64)
	return Snapshot{
		PriceUSD:  price,
		Change1h:  pair.PriceChange.H1,
		Change24h: pair.PriceChange.H24,
		Volume24h: pair.Volume.H24,
		Liquidity: pair.Liquidity.USD,
		MarketCap: pair.MarketCap,
		FetchedAt: time.Now(),
	}, nil
}

// Narrative maps the 24h move to a one-line market mood for prompts.
func Narrative(snap Snapshot) string {
	if snap.Degraded {
		return staticNarratives[rand.Intn(len(staticNarratives))]
	}
	switch {
	case snap.Change24h >= 50:
		return "absolutely sending it, up huge today"
	case snap.Change24h >= 10:
		return "pumping nicely, good vibes"
	case snap.Change24h >= -10:
		return "crabbing sideways, accumulation hours"
	case snap.Change24h >= -30:
		return "dipping, weak hands shaking out"
	default:
		return "deep red, max pain territory"
	}
}

// LowLiquidity flags a thin pool; commentary should avoid implying the
// token is safe to ape into when this is set.
func LowLiquidity(snap Snapshot) bool {
	return !snap.Degraded && snap.Liquidity > 0 && snap.Liquidity < 10_000
}

// PromptContext renders a short market summary for LLM prompts. Degraded
// snapshots produce a vibes-only line with no numbers.
func PromptContext(snap Snapshot) string {
	if snap.Degraded {
		return "Market data unavailable right now. Keep it vibes-based, no numbers."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current market: price $%s, 24h change %+.1f%%, 24h volume $%s, market cap $%s.",
		formatPrice(snap.PriceUSD), snap.Change24h, humanize(snap.Volume24h), humanize(snap.MarketCap))
	sb.WriteString(" Mood: " + Narrative(snap))
	if LowLiquidity(snap) {
		sb.WriteString(". Liquidity is thin, do not encourage buying")
	}
	return sb.String()
}

var staticNarratives = []string{
	"vibes are immaculate regardless of the chart",
	"charts are temporary, frogs are forever",
	"no data needed when conviction is this high",
}

func formatPrice(p float64) string {
	if p >= 1 {
		return fmt.Sprintf("%.2f", p)
	}
	return strconv.FormatFloat(p, 'f', 8, 64)
}

func humanize(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
