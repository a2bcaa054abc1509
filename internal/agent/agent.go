// Package agent wires every subsystem together and owns the posting and
// mention cycles the scheduler drives.
package agent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/cadence"
	"github.com/pumpfrog/pepeagent/internal/config"
	"github.com/pumpfrog/pepeagent/internal/content"
	"github.com/pumpfrog/pepeagent/internal/engagement"
	"github.com/pumpfrog/pepeagent/internal/llm"
	"github.com/pumpfrog/pepeagent/internal/market"
	"github.com/pumpfrog/pepeagent/internal/metrics"
	"github.com/pumpfrog/pepeagent/internal/ops"
	"github.com/pumpfrog/pepeagent/internal/ratelimit"
	"github.com/pumpfrog/pepeagent/internal/scheduler"
	"github.com/pumpfrog/pepeagent/internal/social"
	"github.com/pumpfrog/pepeagent/internal/store"
	"github.com/pumpfrog/pepeagent/internal/topics"
)

// recentHistory caps how many prior posts feed the near-duplicate check.
const recentHistory = 10

// dupWindowHours is the store-backed exact-duplicate lookback.
const dupWindowHours = 72

// Agent is the assembled bot.
type Agent struct {
	cfg config.Config

	store     *store.Store
	social    *social.Client
	llm       *llm.Client
	market    *market.Client
	metrics   *metrics.Set
	opsServer *ops.Server

	generator  *content.Generator
	priceGate  *cadence.PriceTracker
	phraseGate *cadence.CatchPhraseGate
	topics     *topics.Manager
	tracker    *engagement.Tracker
	knowledge  *engagement.Knowledge
	limiter    *ratelimit.ReplyLimiter
	filter     *engagement.Filter
	comments   *engagement.CommentHandler
	mentions   *engagement.MentionHandler
	monitor    *engagement.AccountMonitor
	sched      *scheduler.Scheduler
}

// New builds the agent from config.
func New(cfg config.Config) (*Agent, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	a := &Agent{
		cfg:     cfg,
		store:   st,
		social:  social.NewClient(cfg.Twitter),
		llm:     llm.NewClient(cfg.LLM),
		metrics: metrics.New(),
	}

	var cache market.Cache = market.NewMemoryCache()
	if cfg.Redis.Addr != "" {
		cache = market.NewRedisCache(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis market cache")
	}
	a.market = market.NewClient(cfg.Market, cache)

	a.priceGate = cadence.NewPriceTracker(st)
	a.phraseGate = cadence.NewCatchPhraseGate(st)
	a.topics = topics.NewManager(st)
	a.tracker = engagement.NewTracker(cfg.Engagement.TrackingHorizon)
	a.knowledge = engagement.NewKnowledge(cfg.Content.KnowledgeFile, a.llm)
	a.limiter = ratelimit.NewReplyLimiter(cfg.Engagement.MaxRepliesPerHour)

	validator := content.NewValidator(cfg.Content)
	a.generator = content.NewGenerator(a.llm, validator, content.NewCritic(a.llm),
		a.priceGate, a.phraseGate, cfg.Content)

	filter := engagement.NewFilter("", cfg.Engagement.BlockedUsernames, cfg.Engagement.MaxRepliesPerTweet)
	a.filter = filter
	replier := engagement.NewReplier(a.llm, validator, a.limiter, a.social, filter)
	replier.OnReply(func(source string) {
		a.metrics.RepliesTotal.WithLabelValues(source).Inc()
		a.metrics.ReplyQuota.Set(float64(a.limiter.RemainingQuota()))
	})
	replier.OnDeny(func() {
		a.metrics.QuotaDenials.Inc()
	})

	a.comments = engagement.NewCommentHandler(replier, filter, a.tracker)
	a.mentions = engagement.NewMentionHandler(replier, filter, st, a.knowledge)
	a.monitor = engagement.NewAccountMonitor(replier, filter, cfg.Engagement.MonitoredAccounts)

	a.sched = scheduler.New(cfg.Schedule, a.PostCycle, a.MentionCycle)

	if cfg.Ops.Enabled {
		a.opsServer = ops.NewServer(cfg.Ops.Addr, a.metrics.Registry, a.healthCheck)
	}
	return a, nil
}

// TestConnections verifies external dependencies before the loops start.
func (a *Agent) TestConnections(ctx context.Context) error {
	if err := a.llm.TestConnection(ctx); err != nil {
		return err
	}
	if err := a.social.TestConnection(ctx); err != nil {
		return err
	}
	user, err := a.social.Me(ctx)
	if err != nil {
		return err
	}
	a.filter.SetSelf(user.ID, user.Username)
	return nil
}

// Run starts the ops server and blocks in the scheduler until the
// context is cancelled.
func (a *Agent) Run(ctx context.Context) {
	if a.opsServer != nil {
		a.opsServer.Start()
	}
	a.metrics.ReplyQuota.Set(float64(a.limiter.RemainingQuota()))
	a.sched.Run(ctx)
}

// Shutdown stops the loops and releases resources.
func (a *Agent) Shutdown(ctx context.Context) {
	a.sched.Stop()
	if a.opsServer != nil {
		if err := a.opsServer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Ops server shutdown failed")
		}
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Store close failed")
	}
	log.Info().Msg("Agent shut down")
}

// MentionCycle is the independent mention poll.
func (a *Agent) MentionCycle(ctx context.Context) {
	if !a.cfg.Engagement.EnableReplies {
		return
	}
	sent := a.mentions.Run(ctx)
	if sent > 0 {
		log.Info().Int("sent", sent).Msg("Mention cycle done")
	}
}

// PostCycle is one full pass: engage, refresh metrics, then (caps
// permitting) generate and publish new content.
func (a *Agent) PostCycle(ctx context.Context) {
	log.Info().Msg("Posting cycle started")

	if a.cfg.Engagement.EnableReplies {
		a.monitor.Run(ctx)
		a.comments.Run(ctx)
	}

	a.refreshMetrics(ctx)
	a.tracker.Cleanup()

	if !a.underPostingCaps(ctx) {
		return
	}

	draft, err := a.generate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("No acceptable draft this cycle")
		a.metrics.RejectionsTotal.WithLabelValues("budget_exhausted").Inc()
		return
	}

	a.publish(ctx, draft)
}

func (a *Agent) generate(ctx context.Context) (*content.Draft, error) {
	recent, err := a.store.RecentPosts(ctx, recentHistory, "posted")
	if err != nil {
		log.Warn().Err(err).Msg("Recent post lookup failed")
	}
	recentTexts := make([]string, 0, len(recent))
	recentTypes := make([]string, 0, len(recent))
	for _, p := range recent {
		recentTexts = append(recentTexts, p.Content)
		recentTypes = append(recentTypes, p.ContentType)
	}

	contentType := content.TypeThread
	if !a.topics.ShouldPostThread(ctx) {
		contentType = content.PickType(a.topics.Weights(ctx), recentTypes)
	}
	if contentType == content.TypeCatchPhrase && !a.phraseGate.CanUse(ctx) {
		contentType = content.TypeShitpost
	}

	snap := a.market.Snapshot(ctx)
	marketCtx := market.PromptContext(snap)
	if contentType == content.TypeMarket {
		if trend := a.market.TrendingContext(ctx); trend != "" {
			marketCtx += " " + trend
		}
	}
	hints := engagement.StyleHints(a.tracker.TopPerformers(3), a.knowledge.RecentInsights(5))

	return a.generator.Generate(ctx, content.Request{
		ContentType:   contentType,
		MarketContext: marketCtx,
		RecentTexts:   recentTexts,
		StyleHints:    hints,
	})
}

func (a *Agent) publish(ctx context.Context, draft *content.Draft) {
	record := store.Post{
		Content:     draft.Text,
		ContentType: draft.ContentType,
		Status:      "pending",
		IsThread:    draft.IsThread(),
		CreatedAt:   time.Now().UTC(),
	}
	if draft.IsThread() {
		// Thread tweets share one locally generated id so the whole
		// thread can be queried as a unit later.
		record.ThreadID = sql.NullString{String: uuid.NewString(), Valid: true}
	}
	if !a.cfg.ShouldPost() {
		log.Info().Str("type", draft.ContentType).Str("text", draft.Text).
			Msg("Debug mode, draft not published")
		return
	}

	// The generator already screens near-duplicates against recent
	// history; this is the store-backed exact check over a longer window.
	if dup, err := a.store.IsDuplicateContent(ctx, draft.Text, dupWindowHours); err != nil {
		log.Warn().Err(err).Msg("Duplicate check failed")
	} else if dup {
		log.Info().Str("type", draft.ContentType).Msg("Identical content posted recently, skipping")
		a.metrics.RejectionsTotal.WithLabelValues("store_duplicate").Inc()
		return
	}

	postID, err := a.store.CreatePost(ctx, record)
	if err != nil {
		log.Error().Err(err).Msg("Post bookkeeping failed, not publishing")
		return
	}

	var tweetID string
	if draft.IsThread() {
		tweetID, err = a.social.PostThread(ctx, draft.Tweets)
	} else {
		tweetID, err = a.social.PostTweet(ctx, draft.Text)
	}
	if err != nil {
		log.Error().Err(err).Msg("Publish failed")
		if dbErr := a.store.MarkFailed(ctx, postID, err.Error()); dbErr != nil {
			log.Warn().Err(dbErr).Msg("Failure bookkeeping failed")
		}
		return
	}

	if err := a.store.MarkPosted(ctx, postID, tweetID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Msg("Posted bookkeeping failed")
	}
	a.recordSideEffects(ctx, draft, tweetID)
	log.Info().Str("tweet_id", tweetID).Str("type", draft.ContentType).
		Int("score", draft.Score).Msg("Posted")
}

// recordSideEffects settles the gate and rotation state a shipped draft
// owes: they are deliberately recorded only after a confirmed post.
func (a *Agent) recordSideEffects(ctx context.Context, draft *content.Draft, tweetID string) {
	if draft.MentionsPrice {
		if err := a.priceGate.RecordMention(ctx); err != nil {
			log.Warn().Err(err).Msg("Price gate persist failed")
		}
	}
	if draft.UsesCatchPhrase {
		if err := a.phraseGate.RecordUse(ctx); err != nil {
			log.Warn().Err(err).Msg("Catchphrase gate persist failed")
		}
	}
	if err := a.topics.RecordUse(ctx, draft.ContentType); err != nil {
		log.Warn().Err(err).Msg("Topic bookkeeping failed")
	}
	a.tracker.Track(tweetID, draft.ContentType, draft.Text)
	a.metrics.PostsTotal.WithLabelValues(draft.ContentType).Inc()
}

// refreshMetrics pulls current engagement for the last few tracked posts
// and folds the outcome back into topic rotation.
func (a *Agent) refreshMetrics(ctx context.Context) {
	for _, r := range a.tracker.Recent(5) {
		m, err := a.social.GetMetrics(ctx, r.TweetID)
		if err != nil {
			log.Debug().Err(err).Str("tweet", r.TweetID).Msg("Metrics fetch failed")
			continue
		}
		a.tracker.Update(r.TweetID, m.Likes, m.Retweets, m.Replies)
		if err := a.store.UpdateMetrics(ctx, r.TweetID, m.Likes, m.Retweets, m.Replies); err != nil {
			log.Warn().Err(err).Msg("Metrics persist failed")
		}

		updated := engagement.Record{Likes: m.Likes, Retweets: m.Retweets, Replies: m.Replies}
		success := updated.Score() >= 10
		if err := a.topics.RecordOutcome(ctx, r.ContentType, updated.Score(), success); err != nil {
			log.Warn().Err(err).Msg("Topic outcome bookkeeping failed")
		}
	}
}

func (a *Agent) underPostingCaps(ctx context.Context) bool {
	hourly, err := a.store.CountPostsInWindow(ctx, 1)
	if err != nil {
		log.Warn().Err(err).Msg("Hourly post count failed, skipping cycle")
		return false
	}
	if hourly >= a.cfg.Schedule.MaxPostsPerHour {
		log.Info().Int("posted", hourly).Msg("Hourly posting cap reached")
		return false
	}

	daily, err := a.store.CountPostsInWindow(ctx, 24)
	if err != nil {
		log.Warn().Err(err).Msg("Daily post count failed, skipping cycle")
		return false
	}
	if daily >= a.cfg.Schedule.MaxPostsPerDay {
		log.Info().Int("posted", daily).Msg("Daily posting cap reached")
		return false
	}
	return true
}

func (a *Agent) healthCheck() map[string]string {
	status := map[string]string{"agent": "ok"}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := a.store.CountPostsInWindow(ctx, 1); err != nil {
		status["database"] = err.Error()
	} else {
		status["database"] = "ok"
	}
	return status
}

// PostOnce runs a single posting cycle and returns; used by the one-shot
// command.
func (a *Agent) PostOnce(ctx context.Context) error {
	draft, err := a.generate(ctx)
	if err != nil {
		return err
	}
	a.publish(ctx, draft)
	return nil
}

// Stats summarizes recent performance for the stats command.
func (a *Agent) Stats(ctx context.Context, days int) (store.EngagementStats, ratelimit.Stats, error) {
	stats, err := a.store.GetEngagementStats(ctx, days)
	if err != nil {
		return store.EngagementStats{}, ratelimit.Stats{}, err
	}
	return stats, a.limiter.Stats(), nil
}
