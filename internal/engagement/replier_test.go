package engagement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpfrog/pepeagent/internal/config"
	"github.com/pumpfrog/pepeagent/internal/content"
	"github.com/pumpfrog/pepeagent/internal/llm"
	"github.com/pumpfrog/pepeagent/internal/ratelimit"
	"github.com/pumpfrog/pepeagent/internal/social"
)

type fakeCompleter struct {
	response string
}

func (f *fakeCompleter) Complete(context.Context, llm.Request) (string, error) {
	return f.response, nil
}

type fakePoster struct {
	replies       []social.Tweet // returned by SearchReplies
	mentions      []social.Tweet
	userTweets    map[string][]social.Tweet
	originals     map[string]social.Tweet
	postedReplies []string
}

func (p *fakePoster) PostReply(_ context.Context, inReplyTo, text string) (string, error) {
	p.postedReplies = append(p.postedReplies, inReplyTo)
	return fmt.Sprintf("reply-%d", len(p.postedReplies)), nil
}

func (p *fakePoster) SearchReplies(context.Context, string, int) ([]social.Tweet, error) {
	return p.replies, nil
}

func (p *fakePoster) GetMentions(context.Context, string, int) ([]social.Tweet, error) {
	return p.mentions, nil
}

func (p *fakePoster) GetUserRecentTweets(_ context.Context, username string, _ int) ([]social.Tweet, error) {
	return p.userTweets[username], nil
}

func (p *fakePoster) GetTweet(_ context.Context, id string) (social.Tweet, error) {
	t, ok := p.originals[id]
	if !ok {
		return social.Tweet{}, fmt.Errorf("tweet %s not found", id)
	}
	return t, nil
}

func newTestReplier(poster *fakePoster, maxPerHour int) (*Replier, *Filter) {
	filter := NewFilter("pepeagent", nil, 2)
	replier := NewReplier(
		&fakeCompleter{response: "lmao based take fren"},
		content.NewValidator(config.ContentConfig{MaxLength: 280, MaxHashtags: 3}),
		ratelimit.NewReplyLimiter(maxPerHour),
		poster,
		filter,
	)
	return replier, filter
}

func worthyTweets(n int) []social.Tweet {
	tweets := make([]social.Tweet, n)
	for i := range tweets {
		tweets[i] = social.Tweet{
			ID:             fmt.Sprintf("t%d", i),
			Text:           fmt.Sprintf("interesting comment number %d", i),
			AuthorUsername: fmt.Sprintf("fren%d", i),
			Likes:          i,
		}
	}
	return tweets
}

// Eight worthy comments against a budget of five: exactly five replies
// ship and the rest wait for the window to slide.
func TestCommentRunStopsAtSharedBudget(t *testing.T) {
	poster := &fakePoster{replies: worthyTweets(8)}
	replier, filter := newTestReplier(poster, 5)

	tracker := NewTracker(7 * 24 * time.Hour)
	tracker.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tracker.Track("own1", "shitpost", "my own post")

	h := NewCommentHandler(replier, filter, tracker)
	sent := h.Run(context.Background())

	assert.Equal(t, 5, sent)
	assert.Len(t, poster.postedReplies, 5)
	assert.Equal(t, 0, replier.limiter.RemainingQuota())
}

func TestCommentRunSkipsUnsettledPosts(t *testing.T) {
	poster := &fakePoster{replies: worthyTweets(3)}
	replier, filter := newTestReplier(poster, 5)

	tracker := NewTracker(7 * 24 * time.Hour)
	tracker.Track("own1", "shitpost", "just posted")

	h := NewCommentHandler(replier, filter, tracker)
	assert.Equal(t, 0, h.Run(context.Background()))
}

func TestReplyToChecksBudgetAtSubmission(t *testing.T) {
	poster := &fakePoster{}
	replier, _ := newTestReplier(poster, 1)

	tweet := social.Tweet{ID: "x", Text: "hello frog friend", AuthorUsername: "fren"}
	require.NoError(t, replier.ReplyTo(context.Background(), "comment", tweet, ""))

	err := replier.ReplyTo(context.Background(), "comment", tweet, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reply rate limit reached (1/1")
	assert.Len(t, poster.postedReplies, 1)
}

func TestReplyToHookFires(t *testing.T) {
	poster := &fakePoster{}
	replier, _ := newTestReplier(poster, 5)

	var sources []string
	replier.OnReply(func(source string) { sources = append(sources, source) })

	tweet := social.Tweet{ID: "x", Text: "hello frog friend", AuthorUsername: "fren"}
	require.NoError(t, replier.ReplyTo(context.Background(), "mention", tweet, ""))
	assert.Equal(t, []string{"mention"}, sources)
}

func TestReplyToDenyHookFires(t *testing.T) {
	poster := &fakePoster{}
	replier, _ := newTestReplier(poster, 1)

	denials := 0
	replier.OnDeny(func() { denials++ })

	tweet := social.Tweet{ID: "x", Text: "hello frog friend", AuthorUsername: "fren"}
	require.NoError(t, replier.ReplyTo(context.Background(), "mention", tweet, ""))
	require.Error(t, replier.ReplyTo(context.Background(), "mention", tweet, ""))
	assert.Equal(t, 1, denials)
}
