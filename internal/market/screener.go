package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// TokenSummary is a condensed view of one screened pair.
type TokenSummary struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	PriceUSD    float64   `json:"price_usd"`
	Change24h   float64   `json:"change_24h"`
	Volume24h   float64   `json:"volume_24h"`
	Liquidity   float64   `json:"liquidity"`
	PairCreated time.Time `json:"pair_created"`
}

// PlatformStats aggregates a screened token set.
type PlatformStats struct {
	Tokens         int
	TotalVolume24h float64
	Gainers        int
	Losers         int
}

const screenKey = "market:screen"

const launchWindow = 24 * time.Hour

type searchResponse struct {
	Pairs []struct {
		BaseToken struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"baseToken"`
		PriceUSD    string `json:"priceUsd"`
		PriceChange struct {
			H24 float64 `json:"h24"`
		} `json:"priceChange"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		PairCreatedAt int64 `json:"pairCreatedAt"` // ms epoch
	} `json:"pairs"`
}

// Trending returns the screened tokens with the highest 24h volume.
func (c *Client) Trending(ctx context.Context, limit int) ([]TokenSummary, error) {
	tokens, err := c.screen(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Volume24h > tokens[j].Volume24h })
	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens, nil
}

// RecentLaunches returns screened pairs created within the last day,
// newest first.
func (c *Client) RecentLaunches(ctx context.Context, limit int) ([]TokenSummary, error) {
	tokens, err := c.screen(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-launchWindow)
	launches := tokens[:0:0]
	for _, t := range tokens {
		if t.PairCreated.After(cutoff) {
			launches = append(launches, t)
		}
	}
	sort.Slice(launches, func(i, j int) bool { return launches[i].PairCreated.After(launches[j].PairCreated) })
	if limit > 0 && len(launches) > limit {
		launches = launches[:limit]
	}
	return launches, nil
}

// Suspicious filters tokens whose numbers look like a rug setup: thin
// liquidity or a vertical 24h candle. Commentary must never shill these.
func Suspicious(tokens []TokenSummary) []TokenSummary {
	var out []TokenSummary
	for _, t := range tokens {
		if (t.Liquidity > 0 && t.Liquidity < 10_000) || t.Change24h > 300 {
			out = append(out, t)
		}
	}
	return out
}

// Stats aggregates a screened set into platform-level numbers.
func Stats(tokens []TokenSummary) PlatformStats {
	s := PlatformStats{Tokens: len(tokens)}
	for _, t := range tokens {
		s.TotalVolume24h += t.Volume24h
		switch {
		case t.Change24h > 0:
			s.Gainers++
		case t.Change24h < 0:
			s.Losers++
		}
	}
	return s
}

// TrendingContext renders a short ecosystem summary for commentary
// prompts. Returns "" when the screen is unavailable so callers can
// fall back to subject-token context alone.
func (c *Client) TrendingContext(ctx context.Context) string {
	top, err := c.Trending(ctx, 3)
	if err != nil || len(top) == 0 {
		return ""
	}

	names := make([]string, 0, len(top))
	sus := map[string]bool{}
	for _, t := range Suspicious(top) {
		sus[t.Symbol] = true
	}
	for _, t := range top {
		entry := fmt.Sprintf("$%s %+.0f%%", t.Symbol, t.Change24h)
		if sus[t.Symbol] {
			entry += " (sketchy, do not shill)"
		}
		names = append(names, entry)
	}

	all, _ := c.screen(ctx)
	stats := Stats(all)
	return fmt.Sprintf("Trending on the launchpad: %s. %d tokens screened, %d green / %d red, $%s combined 24h volume.",
		strings.Join(names, ", "), stats.Tokens, stats.Gainers, stats.Losers, humanize(stats.TotalVolume24h))
}

func (c *Client) screen(ctx context.Context) ([]TokenSummary, error) {
	if cached, ok := c.cache.Get(ctx, screenKey); ok {
		var tokens []TokenSummary
		if json.Unmarshal([]byte(cached), &tokens) == nil {
			return tokens, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchSearch(ctx)
	})
	if err != nil {
		return nil, err
	}
	tokens := result.([]TokenSummary)

	if raw, err := json.Marshal(tokens); err == nil {
		c.cache.Set(ctx, screenKey, string(raw), c.screenTTL)
	} else {
		log.Warn().Err(err).Msg("Screen cache encode failed")
	}
	return tokens, nil
}

func (c *Client) fetchSearch(ctx context.Context) ([]TokenSummary, error) {
	u := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(c.searchQuery))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener search status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	tokens := make([]TokenSummary, 0, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		price, _ := strconv.ParseFloat(p.PriceUSD, 64)
		t := TokenSummary{
			Symbol:    p.BaseToken.Symbol,
			Name:      p.BaseToken.Name,
			PriceUSD:  price,
			Change24h: p.PriceChange.H24,
			Volume24h: p.Volume.H24,
			Liquidity: p.Liquidity.USD,
		}
		if p.PairCreatedAt > 0 {
			t.PairCreated = time.UnixMilli(p.PairCreatedAt)
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
