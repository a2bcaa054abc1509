package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpfrog/pepeagent/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.LLMConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Model:    "test-model",
		RPM:      6000,
	})
	return c
}

func TestCompleteParsesTextBlocks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "write a tweet", req.Messages[0].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "gm "},
				{"type": "text", "text": "frens"},
			},
		})
	})

	text, err := c.Complete(context.Background(), Request{Prompt: "write a tweet"})
	require.NoError(t, err)
	assert.Equal(t, "gm frens", text)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		})
	})

	text, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteRejectsEmptyCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []map[string]string{}})
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorContains(t, err, "empty completion")
}
