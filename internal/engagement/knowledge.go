package engagement

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/llm"
)

// KnowledgeEntry is one learned insight, appended to a JSONL file so
// accumulated context survives restarts.
type KnowledgeEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // username or "engagement"
	Insight   string    `json:"insight"`
}

// Knowledge persists insights about what the community responds to and
// feeds them back into generation prompts.
type Knowledge struct {
	mu   sync.Mutex
	path string
	llm  llm.Completer
}

func NewKnowledge(path string, completer llm.Completer) *Knowledge {
	return &Knowledge{path: path, llm: completer}
}

// ExtractInsight asks the model whether a conversation taught us
// anything worth keeping; empty string means nothing learned.
func (k *Knowledge) ExtractInsight(ctx context.Context, author, text string) (string, error) {
	out, err := k.llm.Complete(ctx, llm.Request{
		System: `You maintain notes for a meme account. Given a tweet directed at the
account, extract one short insight about what the community cares about
or responds to, if any. Respond with the insight as one sentence, or
exactly "NONE" if there is nothing useful.`,
		Prompt:      fmt.Sprintf("@%s wrote: %s", author, text),
		MaxTokens:   100,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" || strings.EqualFold(out, "NONE") {
		return "", nil
	}
	return out, nil
}

// Append durably records an insight.
func (k *Knowledge) Append(entry KnowledgeEntry) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(k.path), 0o755); err != nil {
		return fmt.Errorf("knowledge dir: %w", err)
	}
	f, err := os.OpenFile(k.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open knowledge file: %w", err)
	}
	defer f.Close()

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("append knowledge: %w", err)
	}
	return nil
}

// RecentInsights returns the last n insights, oldest first. Corrupt
// lines are skipped.
func (k *Knowledge) RecentInsights(n int) []KnowledgeEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	f, err := os.Open(k.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []KnowledgeEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e KnowledgeEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Debug().Msg("Skipping corrupt knowledge line")
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// StyleHints folds top-performing posts and recent insights into prompt
// guidance for the generator.
func StyleHints(top []Record, insights []KnowledgeEntry) string {
	var sb strings.Builder
	if len(top) > 0 {
		sb.WriteString("Recent posts that performed well:\n")
		for _, r := range top {
			fmt.Fprintf(&sb, "- %q (score %.0f)\n", r.Text, r.Score())
		}
	}
	if len(insights) > 0 {
		sb.WriteString("Things the community responds to:\n")
		for _, e := range insights {
			fmt.Fprintf(&sb, "- %s\n", e.Insight)
		}
	}
	return strings.TrimSpace(sb.String())
}
