package engagement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/cadence"
	"github.com/pumpfrog/pepeagent/internal/social"
)

const mentionCursorKey = "last_mention_id"

// MentionHandler replies to people mentioning the account anywhere on
// the platform. The newest-seen mention id is persisted so restarts do
// not re-answer old mentions.
type MentionHandler struct {
	replier   *Replier
	filter    *Filter
	settings  cadence.Settings
	knowledge *Knowledge
	batchSize int
}

func NewMentionHandler(replier *Replier, filter *Filter, settings cadence.Settings, knowledge *Knowledge) *MentionHandler {
	return &MentionHandler{
		replier:   replier,
		filter:    filter,
		settings:  settings,
		knowledge: knowledge,
		batchSize: 50,
	}
}

// Run polls for new mentions and replies to the worthiest. Returns
// replies sent.
func (h *MentionHandler) Run(ctx context.Context) int {
	sinceID, err := h.settings.GetSetting(ctx, mentionCursorKey)
	if err != nil {
		log.Warn().Err(err).Msg("Mention cursor lookup failed, using default window")
	}

	mentions, err := h.replier.poster.GetMentions(ctx, sinceID, h.batchSize)
	if err != nil {
		log.Warn().Err(err).Msg("Mention poll failed")
		return 0
	}
	if len(mentions) == 0 {
		return 0
	}

	h.advanceCursor(ctx, mentions)

	var candidates []social.Tweet
	for _, t := range mentions {
		if ok, reason := h.filter.Worthy(t); !ok {
			log.Debug().Str("tweet", t.ID).Str("reason", reason).Msg("Mention skipped")
			continue
		}
		candidates = append(candidates, t)
	}

	sent := 0
	for _, t := range RankMentions(candidates) {
		if h.replier.limiter.RemainingQuota() == 0 {
			log.Info().Msg("Reply budget exhausted, leaving remaining mentions")
			break
		}
		if err := h.replier.ReplyTo(ctx, "mention", t, h.conversationContext(ctx, t)); err != nil {
			log.Debug().Err(err).Str("tweet", t.ID).Msg("Mention reply skipped")
			continue
		}
		sent++
		h.learn(ctx, t)
	}
	return sent
}

// advanceCursor persists the newest mention id even when nothing gets a
// reply, so skipped mentions are not revisited forever.
func (h *MentionHandler) advanceCursor(ctx context.Context, mentions []social.Tweet) {
	newest := mentions[0].ID
	for _, t := range mentions[1:] {
		if len(t.ID) > len(newest) || (len(t.ID) == len(newest) && t.ID > newest) {
			newest = t.ID
		}
	}
	if err := h.settings.SetSetting(ctx, mentionCursorKey, newest); err != nil {
		log.Warn().Err(err).Msg("Mention cursor persist failed")
	}
}

// conversationContext fetches the tweet the mention replies to, when the
// mention sits inside someone else's conversation.
func (h *MentionHandler) conversationContext(ctx context.Context, t social.Tweet) string {
	if t.ConversationID == "" || t.ConversationID == t.ID {
		return ""
	}
	original, err := h.replier.poster.GetTweet(ctx, t.ConversationID)
	if err != nil {
		log.Debug().Err(err).Str("conversation", t.ConversationID).Msg("Original tweet fetch failed")
		return ""
	}
	return "They are replying to @" + original.AuthorUsername + ": " + original.Text
}

func (h *MentionHandler) learn(ctx context.Context, t social.Tweet) {
	if h.knowledge == nil {
		return
	}
	insight, err := h.knowledge.ExtractInsight(ctx, t.AuthorUsername, t.Text)
	if err != nil || insight == "" {
		return
	}
	entry := KnowledgeEntry{Timestamp: time.Now().UTC(), Source: t.AuthorUsername, Insight: insight}
	if err := h.knowledge.Append(entry); err != nil {
		log.Warn().Err(err).Msg("Knowledge append failed")
	}
}
