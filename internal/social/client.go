// Package social is the X (Twitter) API v2 client: posting tweets,
// replies and threads with OAuth1 user context, and reading mentions,
// replies and metrics with the app bearer token.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/config"
)

// Tweet is a platform tweet with the fields the agent cares about.
type Tweet struct {
	ID              string
	Text            string
	AuthorID        string
	AuthorUsername  string
	AuthorFollowers int
	ConversationID  string
	CreatedAt       time.Time
	Likes           int
	Retweets        int
	Replies         int
}

// Metrics is a point-in-time engagement snapshot for a tweet.
type Metrics struct {
	Likes    int
	Retweets int
	Replies  int
}

// User is the authenticated account identity.
type User struct {
	ID       string
	Username string
}

// Client talks to the v2 API. Writes require OAuth1 user credentials;
// reads prefer the bearer token when present.
type Client struct {
	baseURL     string
	bearerToken string
	signer      *oauth1Signer
	httpClient  *http.Client

	self *User
}

// NewClient builds a client from config.
func NewClient(cfg config.TwitterConfig) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		bearerToken: cfg.BearerToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.APIKey != "" {
		c.signer = &oauth1Signer{
			consumerKey:    cfg.APIKey,
			consumerSecret: cfg.APISecret,
			token:          cfg.AccessToken,
			tokenSecret:    cfg.AccessTokenSecret,
		}
	}
	return c
}

type tweetObject struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	AuthorID       string `json:"author_id"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
	PublicMetrics  struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
}

type userObject struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

type searchResponse struct {
	Data     []tweetObject `json:"data"`
	Includes struct {
		Users []userObject `json:"users"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Me returns (and caches) the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	if c.self != nil {
		return *c.self, nil
	}

	var out struct {
		Data userObject `json:"data"`
	}
	if err := c.get(ctx, "/users/me", nil, &out, true); err != nil {
		return User{}, fmt.Errorf("users/me: %w", err)
	}
	c.self = &User{ID: out.Data.ID, Username: out.Data.Username}
	return *c.self, nil
}

// PostTweet publishes a standalone tweet and returns its id.
func (c *Client) PostTweet(ctx context.Context, text string) (string, error) {
	return c.createTweet(ctx, map[string]any{"text": text})
}

// PostReply publishes a reply to the given tweet and returns its id.
func (c *Client) PostReply(ctx context.Context, inReplyTo, text string) (string, error) {
	return c.createTweet(ctx, map[string]any{
		"text":  text,
		"reply": map[string]string{"in_reply_to_tweet_id": inReplyTo},
	})
}

// PostThread publishes tweets as a chained reply thread and returns the
// id of the first tweet. A failure mid-thread returns the error along
// with the head id so the partial thread can be recorded.
func (c *Client) PostThread(ctx context.Context, tweets []string) (string, error) {
	if len(tweets) == 0 {
		return "", fmt.Errorf("empty thread")
	}

	head, err := c.PostTweet(ctx, tweets[0])
	if err != nil {
		return "", err
	}
	prev := head
	for i, text := range tweets[1:] {
		id, err := c.PostReply(ctx, prev, text)
		if err != nil {
			return head, fmt.Errorf("thread tweet %d: %w", i+2, err)
		}
		prev = id
		// Platform rejects rapid-fire chained replies.
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return head, ctx.Err()
		}
	}
	return head, nil
}

func (c *Client) createTweet(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req, false); err != nil {
		return "", err
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	return out.Data.ID, nil
}

// SearchReplies returns recent direct replies in a tweet's conversation,
// excluding the agent's own.
func (c *Client) SearchReplies(ctx context.Context, conversationID string, max int) ([]Tweet, error) {
	self, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"query":        {fmt.Sprintf("conversation_id:%s -from:%s", conversationID, self.Username)},
		"max_results":  {fmt.Sprintf("%d", clampResults(max))},
		"tweet.fields": {"author_id,conversation_id,created_at,public_metrics"},
		"expansions":   {"author_id"},
		"user.fields":  {"username,public_metrics"},
	}

	var out searchResponse
	if err := c.get(ctx, "/tweets/search/recent", q, &out, true); err != nil {
		return nil, fmt.Errorf("search replies: %w", err)
	}
	return assemble(out), nil
}

// GetMentions returns mentions of the authenticated account newer than
// sinceID (empty for the default window).
func (c *Client) GetMentions(ctx context.Context, sinceID string, max int) ([]Tweet, error) {
	self, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"max_results":  {fmt.Sprintf("%d", clampResults(max))},
		"tweet.fields": {"author_id,conversation_id,created_at,public_metrics"},
		"expansions":   {"author_id"},
		"user.fields":  {"username,public_metrics"},
	}
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}

	var out searchResponse
	if err := c.get(ctx, "/users/"+self.ID+"/mentions", q, &out, true); err != nil {
		return nil, fmt.Errorf("get mentions: %w", err)
	}
	return assemble(out), nil
}

// GetUserRecentTweets returns a user's latest original tweets (no
// retweets or replies).
func (c *Client) GetUserRecentTweets(ctx context.Context, username string, max int) ([]Tweet, error) {
	q := url.Values{
		"query":        {fmt.Sprintf("from:%s -is:retweet -is:reply", username)},
		"max_results":  {fmt.Sprintf("%d", clampResults(max))},
		"tweet.fields": {"author_id,conversation_id,created_at,public_metrics"},
		"expansions":   {"author_id"},
		"user.fields":  {"username,public_metrics"},
	}

	var out searchResponse
	if err := c.get(ctx, "/tweets/search/recent", q, &out, true); err != nil {
		return nil, fmt.Errorf("user tweets %s: %w", username, err)
	}
	return assemble(out), nil
}

// GetTweet fetches a single tweet by id.
func (c *Client) GetTweet(ctx context.Context, id string) (Tweet, error) {
	q := url.Values{
		"tweet.fields": {"author_id,conversation_id,created_at,public_metrics"},
		"expansions":   {"author_id"},
		"user.fields":  {"username,public_metrics"},
	}

	var out struct {
		Data     tweetObject `json:"data"`
		Includes struct {
			Users []userObject `json:"users"`
		} `json:"includes"`
	}
	if err := c.get(ctx, "/tweets/"+id, q, &out, true); err != nil {
		return Tweet{}, fmt.Errorf("get tweet %s: %w", id, err)
	}

	users := map[string]userObject{}
	for _, u := range out.Includes.Users {
		users[u.ID] = u
	}
	return toTweet(out.Data, users), nil
}

// GetMetrics fetches current engagement counters for a tweet.
func (c *Client) GetMetrics(ctx context.Context, id string) (Metrics, error) {
	tw, err := c.GetTweet(ctx, id)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{Likes: tw.Likes, Retweets: tw.Retweets, Replies: tw.Replies}, nil
}

// TestConnection verifies credentials by resolving the account identity.
func (c *Client) TestConnection(ctx context.Context) error {
	user, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("twitter connection test: %w", err)
	}
	log.Info().Str("username", user.Username).Msg("Twitter connection verified")
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any, preferBearer bool) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if err := c.authorize(req, preferBearer); err != nil {
		return err
	}
	return c.do(req, out)
}

// authorize attaches credentials: bearer for reads when available,
// OAuth1 user context otherwise (required for all writes).
func (c *Client) authorize(req *http.Request, preferBearer bool) error {
	if preferBearer && c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
		return nil
	}
	if c.signer != nil {
		return c.signer.sign(req)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
		return nil
	}
	return fmt.Errorf("no twitter credentials configured")
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Errors []apiError `json:"errors"`
			Title  string     `json:"title"`
			Detail string     `json:"detail"`
		}
		if json.Unmarshal(raw, &e) == nil {
			if len(e.Errors) > 0 {
				return fmt.Errorf("twitter status %d: %s: %s", resp.StatusCode, e.Errors[0].Title, e.Errors[0].Detail)
			}
			if e.Title != "" {
				return fmt.Errorf("twitter status %d: %s: %s", resp.StatusCode, e.Title, e.Detail)
			}
		}
		return fmt.Errorf("twitter status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func assemble(resp searchResponse) []Tweet {
	users := map[string]userObject{}
	for _, u := range resp.Includes.Users {
		users[u.ID] = u
	}
	tweets := make([]Tweet, 0, len(resp.Data))
	for _, t := range resp.Data {
		tweets = append(tweets, toTweet(t, users))
	}
	return tweets
}

func toTweet(t tweetObject, users map[string]userObject) Tweet {
	createdAt, _ := time.Parse(time.RFC3339, t.CreatedAt)
	tw := Tweet{
		ID:             t.ID,
		Text:           t.Text,
		AuthorID:       t.AuthorID,
		ConversationID: t.ConversationID,
		CreatedAt:      createdAt,
		Likes:          t.PublicMetrics.LikeCount,
		Retweets:       t.PublicMetrics.RetweetCount,
		Replies:        t.PublicMetrics.ReplyCount,
	}
	if u, ok := users[t.AuthorID]; ok {
		tw.AuthorUsername = u.Username
		tw.AuthorFollowers = u.PublicMetrics.FollowersCount
	}
	return tw
}

// clampResults keeps max_results inside the API's 10..100 bounds.
func clampResults(n int) int {
	if n < 10 {
		return 10
	}
	if n > 100 {
		return 100
	}
	return n
}
