// Package engagement covers everything reactive: tracking how posts
// perform, deciding which tweets deserve a reply, and the three reply
// producers (comments, mentions, monitored accounts) that share one
// hourly reply budget.
package engagement

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Record is one tracked post's latest engagement reading.
type Record struct {
	TweetID     string
	ContentType string
	Text        string
	Likes       int
	Retweets    int
	Replies     int
	PostedAt    time.Time
	UpdatedAt   time.Time
}

// Score weighs retweets heaviest: they spread the account.
func (r Record) Score() float64 {
	return float64(r.Likes) + 3*float64(r.Retweets) + 2*float64(r.Replies)
}

// Tracker holds recent post performance in memory. Records expire after
// the tracking horizon; durable metrics live in the posts table.
type Tracker struct {
	mu      sync.Mutex
	records map[string]Record
	horizon time.Duration
	now     func() time.Time
}

func NewTracker(horizon time.Duration) *Tracker {
	return &Tracker{
		records: map[string]Record{},
		horizon: horizon,
		now:     time.Now,
	}
}

// Track registers a freshly posted tweet.
func (t *Tracker) Track(tweetID, contentType, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[tweetID] = Record{
		TweetID:     tweetID,
		ContentType: contentType,
		Text:        text,
		PostedAt:    t.now(),
		UpdatedAt:   t.now(),
	}
}

// Update refreshes counters for a tracked tweet; unknown ids are ignored.
func (t *Tracker) Update(tweetID string, likes, retweets, replies int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[tweetID]
	if !ok {
		return
	}
	r.Likes = likes
	r.Retweets = retweets
	r.Replies = replies
	r.UpdatedAt = t.now()
	t.records[tweetID] = r
}

// Recent returns tracked tweet ids newest first, up to limit.
func (t *Tracker) Recent(limit int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	records := t.snapshot()
	sort.Slice(records, func(i, j int) bool {
		return records[i].PostedAt.After(records[j].PostedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// TopPerformers returns the best-scoring records, highest first.
func (t *Tracker) TopPerformers(limit int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	records := t.snapshot()
	sort.Slice(records, func(i, j int) bool {
		return records[i].Score() > records[j].Score()
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Cleanup drops records older than the horizon and returns how many went.
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.horizon)
	dropped := 0
	for id, r := range t.records {
		if r.PostedAt.Before(cutoff) {
			delete(t.records, id)
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("Engagement records expired")
	}
	return dropped
}

func (t *Tracker) snapshot() []Record {
	records := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	return records
}
