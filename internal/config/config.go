package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable application configuration, built once at startup
// and passed into every component constructor.
type Config struct {
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`

	LLM      LLMConfig      `yaml:"llm"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Market   MarketConfig   `yaml:"market"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`

	Schedule   ScheduleConfig   `yaml:"schedule"`
	Content    ContentConfig    `yaml:"content"`
	Engagement EngagementConfig `yaml:"engagement"`
	Ops        OpsConfig        `yaml:"ops"`
}

// LLMConfig configures the text-generation backend.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	RPM         int     `yaml:"requests_per_minute"`
}

// TwitterConfig configures the social platform client.
type TwitterConfig struct {
	BearerToken       string `yaml:"bearer_token"`
	APIKey            string `yaml:"api_key"`
	APISecret         string `yaml:"api_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	BaseURL           string `yaml:"base_url"`
}

// MarketConfig configures the market-data client.
type MarketConfig struct {
	BaseURL         string        `yaml:"base_url"`
	SubjectPair     string        `yaml:"subject_pair"` // pair address for the subject token
	CacheTTL        time.Duration `yaml:"cache_ttl"`    // default 5m
	ScreenTTL       time.Duration `yaml:"screen_ttl"`   // trending/launch scan cache, default 10m
	SearchQuery     string        `yaml:"search_query"` // dex search term for the screener
	RPS             float64       `yaml:"rps"`          // upstream request rate
	Burst           int           `yaml:"burst"`
	BreakerFailures uint32        `yaml:"breaker_failures"` // consecutive failures to open
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// DatabaseConfig configures the Postgres store.
type DatabaseConfig struct {
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig configures the optional Redis cache for market data.
// An empty Addr means the in-process TTL cache is used instead.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScheduleConfig configures the posting cadence.
type ScheduleConfig struct {
	PostInterval    time.Duration `yaml:"post_interval"`    // base interval, jittered ±25%
	MinInterval     time.Duration `yaml:"min_interval"`     // clamp floor
	MaxInterval     time.Duration `yaml:"max_interval"`     // clamp ceiling
	MentionInterval time.Duration `yaml:"mention_interval"` // mention poll loop
	MaxPostsPerHour int           `yaml:"max_posts_per_hour"`
	MaxPostsPerDay  int           `yaml:"max_posts_per_day"`
}

// ContentConfig configures generation and validation.
type ContentConfig struct {
	MaxLength     int    `yaml:"max_length"`
	MaxHashtags   int    `yaml:"max_hashtags"`
	MaxThreadLen  int    `yaml:"max_thread_len"`
	SubjectTicker string `yaml:"subject_ticker"` // e.g. "$PFP"
	CatchPhrase   string `yaml:"catch_phrase"`   // once-per-UTC-day phrase, e.g. "gm"
	AttemptBudget int    `yaml:"attempt_budget"`
	ThreadBudget  int    `yaml:"thread_budget"`
	KnowledgeFile string `yaml:"knowledge_file"`
}

// EngagementConfig configures the reply subsystem.
type EngagementConfig struct {
	EnableReplies      bool          `yaml:"enable_replies"`
	MaxRepliesPerHour  int           `yaml:"max_replies_per_hour"` // shared budget across producers
	MaxRepliesPerTweet int           `yaml:"max_replies_per_tweet"`
	MonitoredAccounts  []string      `yaml:"monitored_accounts"`
	BlockedUsernames   []string      `yaml:"blocked_usernames"`
	LookBack           time.Duration `yaml:"look_back"`
	TrackingHorizon    time.Duration `yaml:"tracking_horizon"` // engagement record lifetime
}

// OpsConfig configures the health/metrics HTTP server.
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Environment: "development",
		LLM: LLMConfig{
			Endpoint:    "https://api.anthropic.com/v1/messages",
			Model:       "claude-sonnet-4-5",
			MaxTokens:   1024,
			Temperature: 0.7,
			RPM:         50,
		},
		Twitter: TwitterConfig{
			BaseURL: "https://api.twitter.com/2",
		},
		Market: MarketConfig{
			BaseURL:         "https://api.dexscreener.com",
			SubjectPair:     "GdfCd7L8X1GiUdFZ1WthNHEB352K3Ni37rswtjgmGLPt",
			CacheTTL:        5 * time.Minute,
			ScreenTTL:       10 * time.Minute,
			SearchQuery:     "pump solana",
			RPS:             2,
			Burst:           4,
			BreakerFailures: 5,
			BreakerTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Timeout: 5 * time.Second,
		},
		Schedule: ScheduleConfig{
			PostInterval:    2 * time.Hour,
			MinInterval:     time.Hour,
			MaxInterval:     4 * time.Hour,
			MentionInterval: 15 * time.Minute,
			MaxPostsPerHour: 10,
			MaxPostsPerDay:  50,
		},
		Content: ContentConfig{
			MaxLength:     280,
			MaxHashtags:   3,
			MaxThreadLen:  5,
			SubjectTicker: "$PFP",
			CatchPhrase:   "gm",
			AttemptBudget: 10,
			ThreadBudget:  3,
			KnowledgeFile: "data/learned_context.jsonl",
		},
		Engagement: EngagementConfig{
			EnableReplies:      true,
			MaxRepliesPerHour:  5,
			MaxRepliesPerTweet: 2,
			LookBack:           2 * time.Hour,
			TrackingHorizon:    7 * 24 * time.Hour,
		},
		Ops: OpsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
	}
}

// Load builds the configuration from an optional YAML file plus environment
// overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Environment, "ENVIRONMENT")
	setBool(&cfg.Debug, "DEBUG")

	setStr(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	setStr(&cfg.LLM.Model, "LLM_MODEL")
	setInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setFloat(&cfg.LLM.Temperature, "LLM_TEMPERATURE")
	setInt(&cfg.LLM.RPM, "LLM_MAX_REQUESTS_PER_MINUTE")

	setStr(&cfg.Twitter.BearerToken, "TWITTER_BEARER_TOKEN")
	setStr(&cfg.Twitter.APIKey, "TWITTER_API_KEY")
	setStr(&cfg.Twitter.APISecret, "TWITTER_API_SECRET")
	setStr(&cfg.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	setStr(&cfg.Twitter.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")

	setStr(&cfg.Database.DSN, "DATABASE_URL")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")

	setMinutes(&cfg.Schedule.PostInterval, "POST_INTERVAL_MINUTES")
	setMinutes(&cfg.Schedule.MinInterval, "MIN_INTERVAL_MINUTES")
	setMinutes(&cfg.Schedule.MaxInterval, "MAX_INTERVAL_MINUTES")
	setMinutes(&cfg.Schedule.MentionInterval, "MENTION_INTERVAL_MINUTES")
	setInt(&cfg.Schedule.MaxPostsPerHour, "MAX_TWEETS_PER_HOUR")
	setInt(&cfg.Schedule.MaxPostsPerDay, "MAX_TWEETS_PER_DAY")

	setInt(&cfg.Content.MaxLength, "MAX_TWEET_LENGTH")
	setInt(&cfg.Content.MaxHashtags, "MAX_HASHTAGS")
	setStr(&cfg.Content.SubjectTicker, "SUBJECT_TICKER")

	setBool(&cfg.Engagement.EnableReplies, "ENABLE_REPLY_SYSTEM")
	setInt(&cfg.Engagement.MaxRepliesPerHour, "MAX_REPLIES_PER_HOUR")
	setInt(&cfg.Engagement.MaxRepliesPerTweet, "MAX_REPLIES_PER_TWEET")
	setList(&cfg.Engagement.MonitoredAccounts, "MONITORED_ACCOUNTS")
	setList(&cfg.Engagement.BlockedUsernames, "BLOCKED_USERNAMES")

	setStr(&cfg.Ops.Addr, "OPS_ADDR")
}

// Validate checks that the configuration is complete enough to start.
// Failures here are fatal: the process must refuse to run half-configured.
func (c Config) Validate() error {
	var errs []string

	if c.LLM.APIKey == "" {
		errs = append(errs, "ANTHROPIC_API_KEY is not set")
	}
	hasOAuth1 := c.Twitter.APIKey != "" && c.Twitter.APISecret != "" &&
		c.Twitter.AccessToken != "" && c.Twitter.AccessTokenSecret != ""
	if !hasOAuth1 && c.Twitter.BearerToken == "" {
		errs = append(errs, "twitter credentials are incomplete: need OAuth 1.0a keys or a bearer token")
	}
	if c.Database.DSN == "" {
		errs = append(errs, "DATABASE_URL is not set")
	}
	if c.Schedule.PostInterval < c.Schedule.MinInterval {
		errs = append(errs, fmt.Sprintf("post interval %s below minimum %s", c.Schedule.PostInterval, c.Schedule.MinInterval))
	}
	if c.Schedule.PostInterval > c.Schedule.MaxInterval {
		errs = append(errs, fmt.Sprintf("post interval %s above maximum %s", c.Schedule.PostInterval, c.Schedule.MaxInterval))
	}
	if c.Engagement.MaxRepliesPerHour <= 0 {
		errs = append(errs, "max replies per hour must be positive")
	}
	if c.Content.MaxLength <= 0 {
		errs = append(errs, "max tweet length must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsProduction reports whether the agent runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ShouldPost reports whether content should actually reach the platform.
// Debug mode keeps the whole pipeline live but swallows the final post.
func (c Config) ShouldPost() bool {
	return !c.Debug
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setMinutes(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = time.Duration(n) * time.Minute
		}
	}
}

func setList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "@"))
			if part != "" {
				out = append(out, strings.ToLower(part))
			}
		}
		*dst = out
	}
}
