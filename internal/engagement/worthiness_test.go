package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pumpfrog/pepeagent/internal/social"
)

func TestWorthyFilters(t *testing.T) {
	f := NewFilter("pepeagent", []string{"spammer"}, 2)

	tests := []struct {
		name   string
		tweet  social.Tweet
		reason string
	}{
		{"own tweet", social.Tweet{ID: "1", AuthorUsername: "PepeAgent", Text: "hello there"}, "own tweet"},
		{"blocked", social.Tweet{ID: "2", AuthorUsername: "Spammer", Text: "hello there"}, "blocked author"},
		{"too short", social.Tweet{ID: "3", AuthorUsername: "fren", Text: "gm"}, "text too short"},
		{"link spam", social.Tweet{ID: "4", AuthorUsername: "fren", Text: "see http://a.com and http://b.com"}, "link spam"},
		{"cashtag spam", social.Tweet{ID: "5", AuthorUsername: "fren", Text: "buy $A $B $C $D now"}, "cashtag spam"},
		{"shouting", social.Tweet{ID: "8", AuthorUsername: "fren", Text: "THIS IS THE BEST COIN EVER MADE"}, "all caps"},
		{"spam phrase", social.Tweet{ID: "10", AuthorUsername: "fren", Text: "nice one, check out my new project"}, "spam phrase"},
		{"spam dm bait", social.Tweet{ID: "11", AuthorUsername: "fren", Text: "DM me for a guaranteed airdrop"}, "spam phrase"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := f.Worthy(tt.tweet)
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}

	ok, _ := f.Worthy(social.Tweet{ID: "6", AuthorUsername: "fren", Text: "genuinely funny account"})
	assert.True(t, ok)
}

func TestWorthySelfByAuthorID(t *testing.T) {
	f := NewFilter("pepeagent", nil, 2)
	f.SetSelf("1000", "pepeagent")

	ok, reason := f.Worthy(social.Tweet{ID: "9", AuthorID: "1000", AuthorUsername: "renamed", Text: "talking to myself again"})
	assert.False(t, ok)
	assert.Equal(t, "own tweet", reason)
}

func TestWorthyPerTweetCap(t *testing.T) {
	f := NewFilter("pepeagent", nil, 2)
	tweet := social.Tweet{ID: "7", AuthorUsername: "fren", Text: "love this frog"}

	ok, _ := f.Worthy(tweet)
	assert.True(t, ok)

	f.MarkReplied("7")
	ok, _ = f.Worthy(tweet)
	assert.True(t, ok)

	f.MarkReplied("7")
	ok, reason := f.Worthy(tweet)
	assert.False(t, ok)
	assert.Equal(t, "reply cap for tweet reached", reason)
}

func TestRankCommentsOrdering(t *testing.T) {
	low := social.Tweet{ID: "low", Likes: 1, AuthorFollowers: 100}
	mid := social.Tweet{ID: "mid", Likes: 10, AuthorFollowers: 1000}
	high := social.Tweet{ID: "high", Likes: 100, AuthorFollowers: 50000}

	ranked := RankComments([]social.Tweet{low, high, mid})
	// A 10% roll may swap the top two; the weakest candidate always ranks last.
	assert.Equal(t, "low", ranked[2].ID)
	assert.Contains(t, []string{"high", "mid"}, ranked[0].ID)
}

func TestRankMentionsRewardsRetweets(t *testing.T) {
	quiet := social.Tweet{ID: "quiet", Likes: 5}
	spread := social.Tweet{ID: "spread", Likes: 0, Retweets: 40}
	tiny := social.Tweet{ID: "tiny"}

	ranked := RankMentions([]social.Tweet{tiny, quiet, spread})
	assert.Equal(t, "tiny", ranked[2].ID)
	assert.Contains(t, []string{"spread", "quiet"}, ranked[0].ID)
}
