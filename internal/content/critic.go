package content

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/llm"
)

// Critique scoring. A draft ships only when the critic scores it at
// least acceptThreshold; an unparseable critique gets defaultScore,
// which deliberately fails the bar.
const (
	acceptThreshold = 8
	defaultScore    = 7
)

var scoreRE = regexp.MustCompile(`(?i)score:\s*(\d+)`)

const criticSystem = `You are a ruthless social media editor for a crypto meme account.
Score the draft tweet 1-10 for: voice consistency (degenerate frog energy,
lowercase, no corporate tone), originality, and whether it reads like a
human wrote it. Penalize anything that sounds like marketing copy, AI
filler, or engagement bait.
Respond with exactly two lines:
Score: <number>
Reason: <one sentence>`

// Critic asks the LLM to score drafts before they ship.
type Critic struct {
	llm llm.Completer
}

func NewCritic(completer llm.Completer) *Critic {
	return &Critic{llm: completer}
}

// Review scores a draft. A failed critique call or a malformed critique
// both score defaultScore, which keeps the pipeline moving but never
// ships an unvetted draft.
func (c *Critic) Review(ctx context.Context, draft string) (int, string) {
	out, err := c.llm.Complete(ctx, llm.Request{
		System:      criticSystem,
		Prompt:      fmt.Sprintf("Draft tweet:\n%s", draft),
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Critique call failed, using default score")
		return defaultScore, ""
	}
	return parseCritique(out)
}

// Accepted reports whether the score clears the shipping bar.
func Accepted(score int) bool {
	return score >= acceptThreshold
}

func parseCritique(out string) (int, string) {
	score := defaultScore
	if m := scoreRE.FindStringSubmatch(out); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 10 {
			score = n
		}
	} else {
		log.Warn().Str("critique", truncateForLog(out)).Msg("Unparseable critique, using default score")
	}

	reason := ""
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Reason:"); ok {
			reason = strings.TrimSpace(rest)
			break
		}
	}
	return score, reason
}

func truncateForLog(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}
