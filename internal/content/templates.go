package content

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Content types the agent rotates through. Each carries a prompt
// template; {market} and {ticker} are filled at generation time.
const (
	TypeShitpost    = "shitpost"
	TypeMarket      = "market_commentary"
	TypeCommunity   = "community"
	TypeCatchPhrase = "catchphrase"
	TypeLore        = "lore"
	TypeQuestion    = "engagement_question"
	TypeThread      = "thread"
)

// AllTypes lists every standalone content type eligible for rotation.
// Threads are chosen separately by the topic manager.
var AllTypes = []string{
	TypeShitpost, TypeMarket, TypeCommunity,
	TypeCatchPhrase, TypeLore, TypeQuestion,
}

var typePrompts = map[string]string{
	TypeShitpost: `Write an absurd, funny shitpost tweet in the voice of a degenerate
frog who lives on crypto twitter. Lowercase, no hashtags, deeply unserious.`,

	TypeMarket: `Write a tweet reacting to the current market from the perspective of
a frog who refuses to be shaken. {market}
Reference the mood, not exact numbers. You may mention {ticker} once.`,

	TypeCommunity: `Write a warm, funny tweet appreciating the frog community. No
ticker, no price. Make the holders feel like insiders.`,

	TypeCatchPhrase: `Write a short morning greeting tweet built around the word "gm".
One or two lines max, frog energy, nothing else going on.`,

	TypeLore: `Write a tweet adding to the ongoing lore of a frog character who
escaped a swamp and now trades from a lily pad. Continue the mythos, do
not explain it.`,

	TypeQuestion: `Write a tweet asking the community one funny, open-ended question
that invites replies. No polls, no hashtags, keep it weird.`,

	TypeThread: `Write a short thread (3-5 tweets) in the voice of a degenerate frog:
a mini-story or unhinged theory. Separate tweets with a line containing
only "---". Each tweet must stand alone under 280 characters.`,
}

// PromptFor renders the template for a content type, filling in market
// context and the ticker.
func PromptFor(contentType, marketContext, ticker string) string {
	tpl, ok := typePrompts[contentType]
	if !ok {
		tpl = typePrompts[TypeShitpost]
	}
	tpl = strings.ReplaceAll(tpl, "{market}", marketContext)
	tpl = strings.ReplaceAll(tpl, "{ticker}", ticker)
	return tpl
}

// PickType selects a content type from the weighted candidates,
// excluding the last two used so back-to-back posts vary.
func PickType(weights map[string]float64, recent []string) string {
	exclude := map[string]bool{}
	for i := len(recent) - 2; i < len(recent); i++ {
		if i >= 0 {
			exclude[recent[i]] = true
		}
	}

	var total float64
	for _, t := range AllTypes {
		if exclude[t] {
			continue
		}
		total += weights[t]
	}
	if total <= 0 {
		return AllTypes[rand.Intn(len(AllTypes))]
	}

	r := rand.Float64() * total
	for _, t := range AllTypes {
		if exclude[t] {
			continue
		}
		r -= weights[t]
		if r <= 0 {
			return t
		}
	}
	return TypeShitpost
}

var threadMarkerRE = regexp.MustCompile(`^\s*\d+[/.)]\s*`)

// SplitThread parses model output into individual thread tweets. The
// prompt asks for "---" separators; models sometimes emit "1/" or "1."
// numbering instead, and as a last resort blank-line splitting applies.
func SplitThread(out string) []string {
	if strings.Contains(out, "---") {
		return cleanParts(strings.Split(out, "---"))
	}

	lines := strings.Split(out, "\n")
	var numbered []string
	current := ""
	for _, line := range lines {
		if threadMarkerRE.MatchString(line) {
			if current != "" {
				numbered = append(numbered, current)
			}
			current = threadMarkerRE.ReplaceAllString(line, "")
		} else if current != "" {
			current += " " + line
		}
	}
	if current != "" {
		numbered = append(numbered, current)
	}
	if len(numbered) >= 2 {
		return cleanParts(numbered)
	}

	return cleanParts(strings.Split(out, "\n\n"))
}

func cleanParts(parts []string) []string {
	tweets := make([]string, 0, len(parts))
	for _, p := range parts {
		if cleaned := CleanText(p); cleaned != "" {
			tweets = append(tweets, cleaned)
		}
	}
	return tweets
}

// NumberThread prefixes tweets with n/total markers when the thread has
// more than one tweet.
func NumberThread(tweets []string) []string {
	if len(tweets) < 2 {
		return tweets
	}
	numbered := make([]string, len(tweets))
	for i, t := range tweets {
		numbered[i] = fmt.Sprintf("%d/%d %s", i+1, len(tweets), t)
	}
	return numbered
}
