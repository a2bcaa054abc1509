package engagement

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpfrog/pepeagent/internal/social"
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

func TestMentionRunRepliesAndAdvancesCursor(t *testing.T) {
	poster := &fakePoster{
		mentions: []social.Tweet{
			{ID: "105", Text: "this account is hilarious", AuthorUsername: "fren1", Likes: 4},
			{ID: "103", Text: "@pepeagent thoughts on swamps", AuthorUsername: "fren2"},
		},
	}
	replier, filter := newTestReplier(poster, 5)
	settings := newMemSettings()

	h := NewMentionHandler(replier, filter, settings, nil)
	sent := h.Run(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, "105", settings.values["last_mention_id"])
}

func TestMentionRunCursorAdvancesWithoutReplies(t *testing.T) {
	poster := &fakePoster{
		mentions: []social.Tweet{
			{ID: "107", Text: "gm", AuthorUsername: "fren1"}, // too short, skipped
		},
	}
	replier, filter := newTestReplier(poster, 5)
	settings := newMemSettings()

	h := NewMentionHandler(replier, filter, settings, nil)
	assert.Equal(t, 0, h.Run(context.Background()))
	assert.Equal(t, "107", settings.values["last_mention_id"])
}

func TestMentionConversationContext(t *testing.T) {
	poster := &fakePoster{
		originals: map[string]social.Tweet{
			"200": {ID: "200", Text: "frogs are overrated", AuthorUsername: "hater"},
		},
	}
	replier, filter := newTestReplier(poster, 5)

	h := NewMentionHandler(replier, filter, newMemSettings(), nil)

	mention := social.Tweet{ID: "201", ConversationID: "200"}
	ctx := h.conversationContext(context.Background(), mention)
	assert.Contains(t, ctx, "@hater")
	assert.Contains(t, ctx, "frogs are overrated")

	// A top-level mention has no original to fetch.
	top := social.Tweet{ID: "300", ConversationID: "300"}
	assert.Empty(t, h.conversationContext(context.Background(), top))
}

func TestKnowledgeAppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.jsonl")
	k := NewKnowledge(path, nil)

	for i, insight := range []string{"likes lore posts", "hates hashtags", "loves gm"} {
		require.NoError(t, k.Append(KnowledgeEntry{
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Minute),
			Source:    "fren",
			Insight:   insight,
		}))
	}

	recent := k.RecentInsights(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "hates hashtags", recent[0].Insight)
	assert.Equal(t, "loves gm", recent[1].Insight)
}

func TestStyleHints(t *testing.T) {
	top := []Record{{Text: "banger post", Likes: 30}}
	insights := []KnowledgeEntry{{Insight: "community loves lore"}}

	hints := StyleHints(top, insights)
	assert.Contains(t, hints, "banger post")
	assert.Contains(t, hints, "community loves lore")
	assert.Empty(t, StyleHints(nil, nil))
}

func TestMonitorOneReplyPerAccount(t *testing.T) {
	poster := &fakePoster{
		userTweets: map[string][]social.Tweet{
			"whale": {
				{ID: "w1", Text: "big market thoughts today", AuthorUsername: "whale", Likes: 100},
				{ID: "w2", Text: "more big market thoughts", AuthorUsername: "whale", Likes: 90},
			},
			"builder": {
				{ID: "b1", Text: "shipped something new today", AuthorUsername: "builder", Likes: 50},
			},
		},
	}
	replier, filter := newTestReplier(poster, 10)

	m := NewAccountMonitor(replier, filter, []string{"whale", "builder"})
	sent := m.Run(context.Background())

	assert.Equal(t, 2, sent)
	assert.Len(t, poster.postedReplies, 2)
}
