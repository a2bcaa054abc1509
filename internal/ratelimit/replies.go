package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ReplyLimiter enforces a single combined hourly reply budget across all
// reply producers. One instance is shared by reference; producers consult
// CanReply before spending a generation call and RecordReply only after a
// confirmed submission. The check-then-record pair is deliberately not
// atomic across producers (see Stats for the observable window).
type ReplyLimiter struct {
	mu         sync.Mutex
	maxPerHour int
	timestamps []time.Time
	now        func() time.Time
}

// Stats is a snapshot of the limiter window.
type Stats struct {
	RepliesLastHour int `json:"replies_last_hour"`
	MaxPerHour      int `json:"max_per_hour"`
	Remaining       int `json:"remaining"`
}

// NewReplyLimiter creates a shared reply limiter.
func NewReplyLimiter(maxPerHour int) *ReplyLimiter {
	return &ReplyLimiter{
		maxPerHour: maxPerHour,
		now:        time.Now,
	}
}

// NewReplyLimiterWithClock creates a limiter with an injected clock.
func NewReplyLimiterWithClock(maxPerHour int, now func() time.Time) *ReplyLimiter {
	return &ReplyLimiter{maxPerHour: maxPerHour, now: now}
}

// CanReply prunes the trailing one-hour window and reports whether another
// reply fits the budget. When denied, the second return value carries a
// human-readable reason for the producer's log line.
func (l *ReplyLimiter) CanReply() (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	if len(l.timestamps) >= l.maxPerHour {
		reason := fmt.Sprintf("reply rate limit reached (%d/%d in last hour)", len(l.timestamps), l.maxPerHour)
		log.Warn().Int("window", len(l.timestamps)).Int("max", l.maxPerHour).Msg("Reply quota exhausted")
		return false, reason
	}
	return true, ""
}

// RecordReply appends the current time to the window. Call only after the
// platform confirmed the reply.
func (l *ReplyLimiter) RecordReply() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.timestamps = append(l.timestamps, l.now())
	log.Debug().Int("window", len(l.timestamps)).Int("max", l.maxPerHour).Msg("Reply recorded")
}

// RemainingQuota returns how many replies are still available this hour.
func (l *ReplyLimiter) RemainingQuota() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	remaining := l.maxPerHour - len(l.timestamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stats returns a pruned snapshot of the window.
func (l *ReplyLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	remaining := l.maxPerHour - len(l.timestamps)
	if remaining < 0 {
		remaining = 0
	}
	return Stats{
		RepliesLastHour: len(l.timestamps),
		MaxPerHour:      l.maxPerHour,
		Remaining:       remaining,
	}
}

// prune drops timestamps older than one hour. Caller must hold the lock.
func (l *ReplyLimiter) prune() {
	cutoff := l.now().Add(-time.Hour)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
}
