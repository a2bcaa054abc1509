package engagement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/content"
	"github.com/pumpfrog/pepeagent/internal/llm"
	"github.com/pumpfrog/pepeagent/internal/ratelimit"
	"github.com/pumpfrog/pepeagent/internal/social"
)

// Poster is the slice of the social client the producers need.
type Poster interface {
	PostReply(ctx context.Context, inReplyTo, text string) (string, error)
	SearchReplies(ctx context.Context, conversationID string, max int) ([]social.Tweet, error)
	GetMentions(ctx context.Context, sinceID string, max int) ([]social.Tweet, error)
	GetUserRecentTweets(ctx context.Context, username string, max int) ([]social.Tweet, error)
	GetTweet(ctx context.Context, id string) (social.Tweet, error)
}

const replySystem = `You are the voice of a chaotic but lovable frog character from
crypto twitter, replying to someone. Lowercase, warm, funny, brief. One
or two sentences. Never give financial advice, never shill, never use
hashtags. Output only the reply text.`

// Replier turns a worthy tweet into a posted reply, spending one unit of
// the shared hourly budget per success.
type Replier struct {
	llm       llm.Completer
	validator *content.Validator
	limiter   *ratelimit.ReplyLimiter
	poster    Poster
	filter    *Filter

	onReply func(source string) // metrics hooks, may be nil
	onDeny  func()
}

func NewReplier(completer llm.Completer, validator *content.Validator,
	limiter *ratelimit.ReplyLimiter, poster Poster, filter *Filter) *Replier {
	return &Replier{
		llm:       completer,
		validator: validator,
		limiter:   limiter,
		poster:    poster,
		filter:    filter,
	}
}

// OnReply registers a hook invoked after every posted reply.
func (r *Replier) OnReply(hook func(source string)) {
	r.onReply = hook
}

// OnDeny registers a hook invoked when the shared budget blocks a reply
// at submission time.
func (r *Replier) OnDeny(hook func()) {
	r.onDeny = hook
}

// ReplyTo generates and posts a reply to the tweet. The shared budget is
// checked immediately before submission; generation time is long enough
// that an earlier check could go stale.
func (r *Replier) ReplyTo(ctx context.Context, source string, t social.Tweet, extraContext string) error {
	prompt := fmt.Sprintf("@%s tweeted:\n%s", t.AuthorUsername, t.Text)
	if extraContext != "" {
		prompt += "\n\nContext:\n" + extraContext
	}

	text, err := r.llm.Complete(ctx, llm.Request{
		System:      replySystem,
		Prompt:      prompt,
		MaxTokens:   150,
		Temperature: 0.9,
	})
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	text = content.CleanText(text)
	if err := r.validator.Check(text); err != nil {
		return fmt.Errorf("reply failed validation: %w", err)
	}

	if ok, reason := r.limiter.CanReply(); !ok {
		if r.onDeny != nil {
			r.onDeny()
		}
		return fmt.Errorf("%s", reason)
	}

	id, err := r.poster.PostReply(ctx, t.ID, text)
	if err != nil {
		return fmt.Errorf("post reply: %w", err)
	}

	r.limiter.RecordReply()
	r.filter.MarkReplied(t.ID)
	if r.onReply != nil {
		r.onReply(source)
	}
	log.Info().Str("source", source).Str("to", t.AuthorUsername).
		Str("reply_id", id).Msg("Reply posted")
	return nil
}
