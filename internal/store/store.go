package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/config"
)

// Post is a row in the posts table.
type Post struct {
	ID           int64          `db:"id"`
	Content      string         `db:"content"`
	ContentType  string         `db:"content_type"`
	Status       string         `db:"status"` // pending, posted, failed
	TweetID      sql.NullString `db:"tweet_id"`
	ThreadID     sql.NullString `db:"thread_id"`
	IsThread     bool           `db:"is_thread"`
	Likes        int            `db:"likes"`
	Retweets     int            `db:"retweets"`
	Replies      int            `db:"replies"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	PostedAt     sql.NullTime   `db:"posted_at"`
}

// Topic is usage bookkeeping for one content category.
type Topic struct {
	TopicName     string       `db:"topic_name"`
	ContentType   string       `db:"content_type"`
	LastUsed      sql.NullTime `db:"last_used"`
	UsageCount    int          `db:"usage_count"`
	SuccessRate   float64      `db:"success_rate"`
	AvgEngagement float64      `db:"avg_engagement"`
}

// EngagementStats aggregates posted-content performance over a window.
type EngagementStats struct {
	TotalPosts    int     `db:"total_posts"`
	TotalLikes    int     `db:"total_likes"`
	TotalRetweets int     `db:"total_retweets"`
	TotalReplies  int     `db:"total_replies"`
	AvgEngagement float64 `db:"avg_engagement"`
}

// Store is the Postgres-backed persistence layer for posts, topics and
// arbitrary settings.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to Postgres and ensures the schema exists.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := &Store{db: db, timeout: cfg.Timeout}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("Store initialized")
	return s, nil
}

// NewWithDB wraps an existing connection; used by tests with sqlmock.
func NewWithDB(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id            BIGSERIAL PRIMARY KEY,
		content       TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending',
		tweet_id      TEXT,
		thread_id     TEXT,
		is_thread     BOOLEAN NOT NULL DEFAULT FALSE,
		likes         INT NOT NULL DEFAULT 0,
		retweets      INT NOT NULL DEFAULT 0,
		replies       INT NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		posted_at     TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at);
	CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status);

	CREATE TABLE IF NOT EXISTS topics (
		topic_name     TEXT PRIMARY KEY,
		content_type   TEXT NOT NULL,
		last_used      TIMESTAMPTZ,
		usage_count    INT NOT NULL DEFAULT 0,
		success_rate   DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_engagement DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// CreatePost inserts a new post record and returns its id.
func (s *Store) CreatePost(ctx context.Context, p Post) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO posts (content, content_type, status, thread_id, is_thread, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := s.db.QueryRowxContext(ctx, query,
		p.Content, p.ContentType, p.Status, p.ThreadID, p.IsThread, p.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

// MarkPosted records a successful platform submission.
func (s *Store) MarkPosted(ctx context.Context, id int64, tweetID string, postedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = 'posted', tweet_id = $1, posted_at = $2 WHERE id = $3`,
		tweetID, postedAt, id)
	if err != nil {
		return fmt.Errorf("mark posted: %w", err)
	}
	return checkOneRow(res, id)
}

// MarkFailed records a failed platform submission.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = 'failed', error_message = $1 WHERE id = $2`,
		reason, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return checkOneRow(res, id)
}

// UpdateMetrics stores refreshed engagement counters for a posted tweet.
func (s *Store) UpdateMetrics(ctx context.Context, tweetID string, likes, retweets, replies int) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET likes = $1, retweets = $2, replies = $3 WHERE tweet_id = $4`,
		likes, retweets, replies, tweetID)
	if err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}
	return nil
}

// CountPostsInWindow counts posts created within the trailing window.
func (s *Store) CountPostsInWindow(ctx context.Context, hours int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM posts WHERE status = 'posted' AND created_at > now() - ($1 * INTERVAL '1 hour')`,
		hours)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// IsDuplicateContent reports whether identical content was posted within
// the trailing window.
func (s *Store) IsDuplicateContent(ctx context.Context, content string, hours int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM posts WHERE content = $1 AND created_at > now() - ($2 * INTERVAL '1 hour')`,
		content, hours)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return count > 0, nil
}

// RecentPosts returns the latest posts, optionally filtered by status.
func (s *Store) RecentPosts(ctx context.Context, limit int, status string) ([]Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var posts []Post
	var err error
	if status != "" {
		err = s.db.SelectContext(ctx, &posts,
			`SELECT * FROM posts WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	} else {
		err = s.db.SelectContext(ctx, &posts,
			`SELECT * FROM posts ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	return posts, nil
}

// GetTopic returns topic bookkeeping, or nil if the topic is unknown.
func (s *Store) GetTopic(ctx context.Context, name string) (*Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var t Topic
	err := s.db.GetContext(ctx, &t, `SELECT * FROM topics WHERE topic_name = $1`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &t, nil
}

// UpsertTopic inserts or replaces topic bookkeeping.
func (s *Store) UpsertTopic(ctx context.Context, t Topic) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (topic_name, content_type, last_used, usage_count, success_rate, avg_engagement)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (topic_name) DO UPDATE SET
			last_used = EXCLUDED.last_used,
			usage_count = EXCLUDED.usage_count,
			success_rate = EXCLUDED.success_rate,
			avg_engagement = EXCLUDED.avg_engagement`,
		t.TopicName, t.ContentType, t.LastUsed, t.UsageCount, t.SuccessRate, t.AvgEngagement)
	if err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}
	return nil
}

// GetSetting returns a settings value, or empty string if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting durably stores a settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// GetEngagementStats aggregates posted-content performance over the last
// N days.
func (s *Store) GetEngagementStats(ctx context.Context, days int) (EngagementStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stats EngagementStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total_posts,
		       COALESCE(SUM(likes), 0) AS total_likes,
		       COALESCE(SUM(retweets), 0) AS total_retweets,
		       COALESCE(SUM(replies), 0) AS total_replies,
		       COALESCE(AVG(likes + retweets * 3 + replies * 2), 0) AS avg_engagement
		FROM posts
		WHERE status = 'posted' AND created_at > now() - ($1 * INTERVAL '1 day')`,
		days)
	if err != nil {
		return stats, fmt.Errorf("engagement stats: %w", err)
	}
	return stats, nil
}

func checkOneRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support
	}
	if affected == 0 {
		return fmt.Errorf("post %d not found", id)
	}
	return nil
}
