// Package llm wraps the Anthropic messages API behind a small completion
// interface so content generation and critique stay testable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pumpfrog/pepeagent/internal/config"
)

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client talks to the messages API over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds a client from config. Requests are paced to the
// configured per-minute budget so reply bursts stay inside provider limits.
func NewClient(cfg config.LLMConfig) *Client {
	rpm := cfg.RPM
	if rpm <= 0 {
		rpm = 50
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 2),
		maxRetries: 3,
	}
}

// Complete sends one completion request, retrying transient failures
// with jittered backoff.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = 300
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		text, retryable, err := c.send(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		backoff := time.Duration(1<<attempt)*time.Second + time.Duration(rand.Intn(500))*time.Millisecond
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("LLM request failed, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("llm: %d attempts exhausted: %w", c.maxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, req Request) (string, bool, error) {
	body, err := json.Marshal(apiRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []apiMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("llm status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("llm status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("llm api error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", false, fmt.Errorf("llm returned empty completion")
	}
	return text, false, nil
}

// TestConnection issues a tiny completion to verify credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Complete(ctx, Request{Prompt: "Say OK", MaxTokens: 10})
	if err != nil {
		return fmt.Errorf("llm connection test: %w", err)
	}
	log.Info().Str("model", c.model).Msg("LLM connection verified")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
