// Package cadence enforces durable timing gates on special content:
// price commentary at most once per 24 hours, the "gm" greeting at most
// once per UTC day. State lives in the settings store so restarts do
// not reset the gates.
package cadence

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	priceMentionKey = "last_price_mention"
	catchPhraseKey  = "last_catchphrase_date"

	priceMentionInterval = 24 * time.Hour
)

// Settings is the durable key/value slice of the store this package needs.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// PriceTracker gates price commentary to one mention per trailing 24 hours.
type PriceTracker struct {
	settings Settings
	now      func() time.Time
}

func NewPriceTracker(settings Settings) *PriceTracker {
	return &PriceTracker{settings: settings, now: time.Now}
}

// lastMention returns the stored mention time, or zero if none or unparseable.
func (t *PriceTracker) lastMention(ctx context.Context) time.Time {
	raw, err := t.settings.GetSetting(ctx, priceMentionKey)
	if err != nil {
		log.Warn().Err(err).Msg("Price mention lookup failed, treating as never")
		return time.Time{}
	}
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("Corrupt price mention timestamp, treating as never")
		return time.Time{}
	}
	return ts
}

// CanMentionPrice reports whether a price mention is allowed now.
func (t *PriceTracker) CanMentionPrice(ctx context.Context) bool {
	last := t.lastMention(ctx)
	if last.IsZero() {
		return true
	}
	return t.now().Sub(last) >= priceMentionInterval
}

// RecordMention stamps the current time as the latest price mention.
func (t *PriceTracker) RecordMention(ctx context.Context) error {
	return t.settings.SetSetting(ctx, priceMentionKey, t.now().UTC().Format(time.RFC3339))
}

// HoursUntilAllowed returns how many hours remain before the next price
// mention is permitted, zero when allowed already.
func (t *PriceTracker) HoursUntilAllowed(ctx context.Context) float64 {
	last := t.lastMention(ctx)
	if last.IsZero() {
		return 0
	}
	remaining := priceMentionInterval - t.now().Sub(last)
	if remaining <= 0 {
		return 0
	}
	return remaining.Hours()
}

// CatchPhraseGate allows the daily greeting once per UTC calendar day.
type CatchPhraseGate struct {
	settings Settings
	now      func() time.Time
}

func NewCatchPhraseGate(settings Settings) *CatchPhraseGate {
	return &CatchPhraseGate{settings: settings, now: time.Now}
}

// CanUse reports whether the greeting has not yet been posted today (UTC).
func (g *CatchPhraseGate) CanUse(ctx context.Context) bool {
	last, err := g.settings.GetSetting(ctx, catchPhraseKey)
	if err != nil {
		log.Warn().Err(err).Msg("Catchphrase date lookup failed, treating as unused")
		return true
	}
	return last != g.today()
}

// RecordUse stamps today (UTC) as the latest greeting day.
func (g *CatchPhraseGate) RecordUse(ctx context.Context) error {
	return g.settings.SetSetting(ctx, catchPhraseKey, g.today())
}

func (g *CatchPhraseGate) today() string {
	return g.now().UTC().Format("2006-01-02")
}
