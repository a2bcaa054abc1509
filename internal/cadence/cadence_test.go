package cadence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	values map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{values: map[string]string{}}
}

func (m *memSettings) GetSetting(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memSettings) SetSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func TestPriceTrackerFreshStateAllows(t *testing.T) {
	tr := NewPriceTracker(newMemSettings())
	assert.True(t, tr.CanMentionPrice(context.Background()))
	assert.Zero(t, tr.HoursUntilAllowed(context.Background()))
}

func TestPriceTrackerBlocksWithin24h(t *testing.T) {
	ctx := context.Background()
	tr := NewPriceTracker(newMemSettings())

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }
	require.NoError(t, tr.RecordMention(ctx))

	tr.now = func() time.Time { return base.Add(12 * time.Hour) }
	assert.False(t, tr.CanMentionPrice(ctx))
	assert.InDelta(t, 12.0, tr.HoursUntilAllowed(ctx), 0.01)

	tr.now = func() time.Time { return base.Add(24 * time.Hour) }
	assert.True(t, tr.CanMentionPrice(ctx))
	assert.Zero(t, tr.HoursUntilAllowed(ctx))
}

func TestPriceTrackerCorruptTimestampFailsOpen(t *testing.T) {
	ctx := context.Background()
	settings := newMemSettings()
	settings.values["last_price_mention"] = "not-a-timestamp"

	tr := NewPriceTracker(settings)
	assert.True(t, tr.CanMentionPrice(ctx))
}

func TestCatchPhraseOncePerUTCDay(t *testing.T) {
	ctx := context.Background()
	gate := NewCatchPhraseGate(newMemSettings())

	// 23:30 UTC on one day, 00:30 UTC the next: different calendar days,
	// so the gate reopens after only one hour of wall time.
	late := time.Date(2026, 8, 30, 23, 30, 0, 0, time.UTC)
	gate.now = func() time.Time { return late }

	assert.True(t, gate.CanUse(ctx))
	require.NoError(t, gate.RecordUse(ctx))
	assert.False(t, gate.CanUse(ctx))

	gate.now = func() time.Time { return late.Add(time.Hour) }
	assert.True(t, gate.CanUse(ctx))
}
