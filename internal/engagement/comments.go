package engagement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/social"
)

// CommentHandler replies to people commenting under the account's own
// recent posts.
type CommentHandler struct {
	replier *Replier
	filter  *Filter
	tracker *Tracker
	now     func() time.Time

	// Tweets younger than this are skipped so conversations can develop
	// before the account wades in.
	settleTime time.Duration
	scanLimit  int
}

func NewCommentHandler(replier *Replier, filter *Filter, tracker *Tracker) *CommentHandler {
	return &CommentHandler{
		replier:    replier,
		filter:     filter,
		tracker:    tracker,
		now:        time.Now,
		settleTime: 30 * time.Minute,
		scanLimit:  3,
	}
}

// Run scans recent own posts for comments and replies to the worthiest
// until the shared budget or candidates run out. Returns replies sent.
func (h *CommentHandler) Run(ctx context.Context) int {
	recent := h.tracker.Recent(h.scanLimit)
	candidates := h.collect(ctx, recent)
	if len(candidates) == 0 {
		return 0
	}

	sent := 0
	for _, t := range RankComments(candidates) {
		if h.replier.limiter.RemainingQuota() == 0 {
			log.Info().Msg("Reply budget exhausted, leaving remaining comments")
			break
		}
		if err := h.replier.ReplyTo(ctx, "comment", t, ""); err != nil {
			log.Debug().Err(err).Str("tweet", t.ID).Msg("Comment reply skipped")
			continue
		}
		sent++
	}
	return sent
}

func (h *CommentHandler) collect(ctx context.Context, recent []Record) []social.Tweet {
	var candidates []social.Tweet
	for _, r := range recent {
		if h.now().Sub(r.PostedAt) < h.settleTime {
			continue
		}
		replies, err := h.replier.poster.SearchReplies(ctx, r.TweetID, 20)
		if err != nil {
			log.Warn().Err(err).Str("tweet", r.TweetID).Msg("Reply search failed")
			continue
		}
		for _, t := range replies {
			if ok, reason := h.filter.Worthy(t); !ok {
				log.Debug().Str("tweet", t.ID).Str("reason", reason).Msg("Comment skipped")
				continue
			}
			candidates = append(candidates, t)
		}
	}
	return candidates
}
