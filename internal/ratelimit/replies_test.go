package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplyLimiter_QuotaCounts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewReplyLimiterWithClock(5, func() time.Time { return now })

	for n := 1; n <= 5; n++ {
		ok, _ := limiter.CanReply()
		assert.True(t, ok, "reply %d should be allowed", n)
		limiter.RecordReply()
		assert.Equal(t, 5-n, limiter.RemainingQuota())
	}

	ok, reason := limiter.CanReply()
	assert.False(t, ok, "sixth reply should be denied")
	assert.Contains(t, reason, "5/5")
	assert.Equal(t, 0, limiter.RemainingQuota())
}

func TestReplyLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewReplyLimiterWithClock(2, func() time.Time { return now })

	limiter.RecordReply()
	limiter.RecordReply()
	ok, _ := limiter.CanReply()
	assert.False(t, ok)

	// 61 minutes later the window is empty again.
	now = now.Add(61 * time.Minute)
	ok, _ = limiter.CanReply()
	assert.True(t, ok)
	assert.Equal(t, 2, limiter.RemainingQuota())
}

func TestReplyLimiter_StatsSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewReplyLimiterWithClock(4, func() time.Time { return now })

	limiter.RecordReply()
	now = now.Add(30 * time.Minute)
	limiter.RecordReply()

	stats := limiter.Stats()
	assert.Equal(t, 2, stats.RepliesLastHour)
	assert.Equal(t, 4, stats.MaxPerHour)
	assert.Equal(t, 2, stats.Remaining)

	// The first record falls out after an hour, the second stays.
	now = now.Add(45 * time.Minute)
	stats = limiter.Stats()
	assert.Equal(t, 1, stats.RepliesLastHour)
	assert.Equal(t, 3, stats.Remaining)
}

func TestReplyLimiter_ConcurrentRecords(t *testing.T) {
	limiter := NewReplyLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.RecordReply()
		}()
	}
	wg.Wait()

	stats := limiter.Stats()
	assert.Equal(t, 50, stats.RepliesLastHour)
	assert.Equal(t, 50, stats.Remaining)
}
