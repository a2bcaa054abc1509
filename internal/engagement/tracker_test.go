package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreWeighsRetweetsHeaviest(t *testing.T) {
	r := Record{Likes: 1, Retweets: 2, Replies: 3}
	assert.Equal(t, 13.0, r.Score())
}

func TestTrackerUpdateAndTop(t *testing.T) {
	tr := NewTracker(7 * 24 * time.Hour)

	tr.Track("1", "shitpost", "first")
	tr.Track("2", "lore", "second")
	tr.Update("1", 10, 0, 0)
	tr.Update("2", 0, 10, 0)
	tr.Update("unknown", 99, 99, 99)

	top := tr.TopPerformers(1)
	require.Len(t, top, 1)
	assert.Equal(t, "2", top[0].TweetID) // 30 points beats 10
}

func TestTrackerRecentOrder(t *testing.T) {
	tr := NewTracker(7 * 24 * time.Hour)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c", "d"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		tr.now = func() time.Time { return tick }
		tr.Track(id, "shitpost", id)
	}

	recent := tr.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].TweetID)
	assert.Equal(t, "b", recent[2].TweetID)
}

func TestTrackerCleanup(t *testing.T) {
	tr := NewTracker(7 * 24 * time.Hour)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	tr.now = func() time.Time { return base.Add(-8 * 24 * time.Hour) }
	tr.Track("old", "lore", "ancient take")
	tr.now = func() time.Time { return base }
	tr.Track("fresh", "lore", "new take")

	assert.Equal(t, 1, tr.Cleanup())
	assert.Len(t, tr.Recent(10), 1)
}
