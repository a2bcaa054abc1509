package engagement

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pumpfrog/pepeagent/internal/social"
)

// Worthiness filtering and ranking shared by every reply producer.
// Filters are cheap and local; anything that survives them ranks against
// the rest of the batch and competes for the shared reply budget.

const minReplyTextLen = 5

var spamPhrases = []string{"dm me", "check out", "buy now", "click here", "follow me"}

// Filter decides which candidate tweets are worth engaging with.
type Filter struct {
	selfID       string
	selfUsername string
	blocked      map[string]bool

	mu         sync.Mutex
	repliedTo  map[string]int // tweet id -> replies sent
	maxPerItem int
}

func NewFilter(selfUsername string, blockedUsernames []string, maxRepliesPerTweet int) *Filter {
	blocked := make(map[string]bool, len(blockedUsernames))
	for _, u := range blockedUsernames {
		blocked[strings.ToLower(u)] = true
	}
	if maxRepliesPerTweet <= 0 {
		maxRepliesPerTweet = 1
	}
	return &Filter{
		selfUsername: strings.ToLower(selfUsername),
		blocked:      blocked,
		repliedTo:    map[string]int{},
		maxPerItem:   maxRepliesPerTweet,
	}
}

// SetSelf records the authenticated identity once it is known; the
// account's own tweets are never reply candidates. The stable user id
// is the primary comparison since usernames can be renamed.
func (f *Filter) SetSelf(id, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selfID = id
	f.selfUsername = strings.ToLower(username)
}

// Worthy returns false with a reason for tweets that should be skipped.
func (f *Filter) Worthy(t social.Tweet) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	author := strings.ToLower(t.AuthorUsername)
	switch {
	case f.selfID != "" && t.AuthorID == f.selfID:
		return false, "own tweet"
	case author != "" && author == f.selfUsername:
		return false, "own tweet"
	case f.blocked[author]:
		return false, "blocked author"
	case len(strings.TrimSpace(t.Text)) < minReplyTextLen:
		return false, "text too short"
	case isShouting(t.Text):
		return false, "all caps"
	case containsSpamPhrase(t.Text):
		return false, "spam phrase"
	case strings.Count(strings.ToLower(t.Text), "http") > 1:
		return false, "link spam"
	case cashtagCount(t.Text) > 3:
		return false, "cashtag spam"
	case f.repliedTo[t.ID] >= f.maxPerItem:
		return false, "reply cap for tweet reached"
	}
	return true, ""
}

// isShouting flags text that is entirely upper-case past a short length.
func isShouting(text string) bool {
	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters > 12
}

// MarkReplied counts a sent reply against the per-tweet cap.
func (f *Filter) MarkReplied(tweetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repliedTo[tweetID]++
}

func containsSpamPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range spamPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func cashtagCount(text string) int {
	count := 0
	for _, w := range strings.Fields(text) {
		if len(w) > 1 && w[0] == '$' {
			count++
		}
	}
	return count
}

// RankComments orders reply candidates: visible engagement plus author
// reach. A 10% chance swaps the top two so the account does not always
// chase the single loudest reply.
func RankComments(tweets []social.Tweet) []social.Tweet {
	return rank(tweets, func(t social.Tweet) float64 {
		return float64(t.Likes)*2 + float64(t.AuthorFollowers)/100
	})
}

// RankMentions orders mention candidates; retweet reach matters more for
// mentions since they surface the account to new audiences.
func RankMentions(tweets []social.Tweet) []social.Tweet {
	return rank(tweets, func(t social.Tweet) float64 {
		return float64(t.Likes)*2 + float64(t.Retweets)*3 + float64(t.AuthorFollowers)/100
	})
}

func rank(tweets []social.Tweet, score func(social.Tweet) float64) []social.Tweet {
	ranked := make([]social.Tweet, len(tweets))
	copy(ranked, tweets)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	if len(ranked) >= 2 && rand.Float64() < 0.1 {
		ranked[0], ranked[1] = ranked[1], ranked[0]
	}
	return ranked
}
