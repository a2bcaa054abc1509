package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/cadence"
	"github.com/pumpfrog/pepeagent/internal/config"
	"github.com/pumpfrog/pepeagent/internal/llm"
)

const personaSystem = `You are the voice of a chaotic but lovable frog character from
crypto twitter. You write in lowercase, you are funny without trying,
self-aware about memecoins, and you never sound like a brand. You never
give financial advice, never promise gains, and never beg for engagement.
Output only the tweet text, nothing else.`

// Draft is content that cleared every gate and is ready to post.
type Draft struct {
	Text        string
	Tweets      []string // populated for threads
	ContentType string
	Score       int
	Reason      string

	// Gate side effects owed after a successful post.
	MentionsPrice   bool
	UsesCatchPhrase bool
}

// IsThread reports whether the draft posts as a chained thread.
func (d *Draft) IsThread() bool {
	return len(d.Tweets) > 1
}

// Request carries everything one generation run needs.
type Request struct {
	ContentType   string
	MarketContext string
	RecentTexts   []string // recent posts for the near-duplicate check
	StyleHints    string   // learned style guidance, may be empty
}

// Generator runs the draft-vet-retry loop: prompt the model, normalize,
// apply structural and cadence gates, reject near-duplicates, then let
// the critic score it. Attempts are budgeted; exhaustion is an error the
// caller treats as "skip this slot".
type Generator struct {
	llm        llm.Completer
	validator  *Validator
	critic     *Critic
	priceGate  *cadence.PriceTracker
	phraseGate *cadence.CatchPhraseGate
	cfg        config.ContentConfig
}

func NewGenerator(completer llm.Completer, validator *Validator, critic *Critic,
	priceGate *cadence.PriceTracker, phraseGate *cadence.CatchPhraseGate,
	cfg config.ContentConfig) *Generator {
	return &Generator{
		llm:        completer,
		validator:  validator,
		critic:     critic,
		priceGate:  priceGate,
		phraseGate: phraseGate,
		cfg:        cfg,
	}
}

// Generate produces an accepted draft or an error after the attempt
// budget is spent.
func (g *Generator) Generate(ctx context.Context, req Request) (*Draft, error) {
	if req.ContentType == TypeThread {
		return g.generateThread(ctx, req)
	}

	budget := g.cfg.AttemptBudget
	var lastReject string
	for attempt := 1; attempt <= budget; attempt++ {
		draft, reject, err := g.attempt(ctx, req)
		if err != nil {
			return nil, err
		}
		if draft != nil {
			log.Info().Str("type", req.ContentType).Int("attempt", attempt).
				Int("score", draft.Score).Msg("Draft accepted")
			return draft, nil
		}
		lastReject = reject
		log.Debug().Str("type", req.ContentType).Int("attempt", attempt).
			Str("reason", reject).Msg("Draft rejected")
	}
	return nil, fmt.Errorf("attempt budget spent (%d): last rejection: %s", budget, lastReject)
}

// attempt runs a single generate-and-vet pass. A nil draft with a reason
// means a retryable rejection; only context cancellation aborts the run.
func (g *Generator) attempt(ctx context.Context, req Request) (*Draft, string, error) {
	out, err := g.llm.Complete(ctx, llm.Request{
		System:      personaSystem,
		Prompt:      g.buildPrompt(req),
		MaxTokens:   300,
		Temperature: 0.9,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, fmt.Sprintf("generation failed: %v", err), nil
	}

	text := CleanText(out)
	if text == "" {
		return nil, "empty generation", nil
	}

	draft := &Draft{Text: text, ContentType: req.ContentType}
	if reject := g.applyCadenceGates(ctx, draft, text); reject != "" {
		return nil, reject, nil
	}

	if TooSimilar(text, req.RecentTexts) {
		return nil, "too similar to recent posts", nil
	}

	if err := g.validator.Check(text); err != nil {
		return nil, err.Error(), nil
	}

	score, reason := g.critic.Review(ctx, text)
	if !Accepted(score) {
		return nil, fmt.Sprintf("critic score %d: %s", score, reason), nil
	}

	draft.Score = score
	draft.Reason = reason
	return draft, "", nil
}

// applyCadenceGates enforces the durable timing gates and records on the
// draft which side effects the caller owes after posting. The first
// catchphrase of the day passes regardless of which template produced it.
func (g *Generator) applyCadenceGates(ctx context.Context, draft *Draft, text string) string {
	if ContainsPriceAction(text, g.cfg.SubjectTicker) {
		if !g.priceGate.CanMentionPrice(ctx) {
			hours := g.priceGate.HoursUntilAllowed(ctx)
			return fmt.Sprintf("price mention gated for %.1fh", hours)
		}
		draft.MentionsPrice = true
	}
	if ContainsWord(text, g.cfg.CatchPhrase) {
		if !g.phraseGate.CanUse(ctx) {
			return fmt.Sprintf("%q already used today", g.cfg.CatchPhrase)
		}
		draft.UsesCatchPhrase = true
	}
	return ""
}

func (g *Generator) buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(PromptFor(req.ContentType, req.MarketContext, g.cfg.SubjectTicker))
	if req.StyleHints != "" {
		sb.WriteString("\n\nStyle notes from what has worked before:\n")
		sb.WriteString(req.StyleHints)
	}
	sb.WriteString(fmt.Sprintf("\n\nHard limit: %d characters.", g.cfg.MaxLength))
	return sb.String()
}

func (g *Generator) generateThread(ctx context.Context, req Request) (*Draft, error) {
	budget := g.cfg.ThreadBudget
	var lastReject string
	for attempt := 1; attempt <= budget; attempt++ {
		out, err := g.llm.Complete(ctx, llm.Request{
			System:      personaSystem,
			Prompt:      g.buildPrompt(req),
			MaxTokens:   1000,
			Temperature: 0.9,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastReject = fmt.Sprintf("generation failed: %v", err)
			continue
		}

		tweets := SplitThread(out)
		if len(tweets) < 2 {
			lastReject = "thread parsed to fewer than 2 tweets"
			continue
		}
		if limit := g.cfg.MaxThreadLen; limit > 0 && len(tweets) > limit {
			tweets = tweets[:limit]
		}

		if reject := g.vetThread(ctx, req, tweets); reject != "" {
			lastReject = reject
			log.Debug().Int("attempt", attempt).Str("reason", reject).Msg("Thread rejected")
			continue
		}

		numbered := NumberThread(tweets)
		score, reason := g.critic.Review(ctx, strings.Join(numbered, "\n"))
		if !Accepted(score) {
			lastReject = fmt.Sprintf("critic score %d: %s", score, reason)
			continue
		}

		draft := &Draft{
			Text:        numbered[0],
			Tweets:      numbered,
			ContentType: TypeThread,
			Score:       score,
			Reason:      reason,
		}
		for _, t := range tweets {
			if ContainsPriceAction(t, g.cfg.SubjectTicker) {
				draft.MentionsPrice = true
			}
			if ContainsWord(t, g.cfg.CatchPhrase) {
				draft.UsesCatchPhrase = true
			}
		}
		log.Info().Int("tweets", len(numbered)).Int("attempt", attempt).
			Int("score", score).Msg("Thread accepted")
		return draft, nil
	}
	return nil, fmt.Errorf("thread budget spent (%d): last rejection: %s", budget, lastReject)
}

// vetThread sanitizes each tweet in place and rejects the thread when a
// tweet still fails validation, mentions gated topics, or the opener
// rehashes recent posts.
func (g *Generator) vetThread(ctx context.Context, req Request, tweets []string) string {
	// Numbering adds a few characters per tweet; leave room for it.
	prefixRoom := len(fmt.Sprintf("%d/%d ", len(tweets), len(tweets)))
	for i, t := range tweets {
		t = g.validator.Sanitize(t)
		if TweetLen(t)+prefixRoom > g.cfg.MaxLength {
			t = g.validator.Sanitize(string([]rune(t)[:g.cfg.MaxLength-prefixRoom]))
		}
		if err := g.validator.Check(t); err != nil {
			return fmt.Sprintf("tweet %d: %v", i+1, err)
		}
		if ContainsPriceAction(t, g.cfg.SubjectTicker) && !g.priceGate.CanMentionPrice(ctx) {
			return fmt.Sprintf("tweet %d: price mention gated", i+1)
		}
		if ContainsWord(t, g.cfg.CatchPhrase) && !g.phraseGate.CanUse(ctx) {
			return fmt.Sprintf("tweet %d: %q already used today", i+1, g.cfg.CatchPhrase)
		}
		tweets[i] = t
	}
	if TooSimilar(tweets[0], req.RecentTexts) {
		return "opening tweet too similar to recent posts"
	}
	return ""
}
