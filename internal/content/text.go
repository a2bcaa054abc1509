// Package content generates and vets posts: text normalization,
// similarity checks, structural validation, LLM critique, and the
// attempt-budgeted generation pipeline that ties them together.
package content

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	hashtagRE    = regexp.MustCompile(`#\w+`)
	priceValueRE = regexp.MustCompile(`\$\d+\.?\d*[mkbMKB]?`)

	// Leading scaffolding the model sometimes emits around the tweet body.
	preambleRE = regexp.MustCompile(`(?i)^(here'?s?( is)?( the| your| a)? tweet:?|tweet:|post:|reply:)\s*`)
)

var priceKeywords = []string{
	"price", "pump", "dump", "moon", "chart", "market cap", "mcap",
	"ath", "dip", "bottom", "support", "resistance", "breakout",
	"candle", "volume", "liquidity",
}

// CleanText normalizes raw model output into a postable tweet: strips
// scaffolding prefixes, wrapping quotes and emoji, collapses whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	s = preambleRE.ReplaceAllString(s, "")
	s = StripWrappingQuotes(s)
	s = StripEmojis(s)
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripWrappingQuotes removes one layer of quotes that wrap the whole text.
func StripWrappingQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"}} {
		if len(s) >= 2 && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			inner := strings.TrimSuffix(strings.TrimPrefix(s, pair[0]), pair[1])
			// Only unwrap if the quotes enclose the entire text, not a
			// quoted fragment that happens to start and end the tweet.
			if !strings.Contains(inner, pair[0]) && !strings.Contains(inner, pair[1]) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

// StripEmojis removes emoji and pictographic runes.
func StripEmojis(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, ZWJ
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	}
	return false
}

// Hashtags returns the hashtags present in the text.
func Hashtags(s string) []string {
	return hashtagRE.FindAllString(s, -1)
}

// ContainsWord reports whether the text contains the word with
// word-boundary semantics, case-insensitively.
func ContainsWord(text, word string) bool {
	lower := strings.ToLower(text)
	target := strings.ToLower(word)
	idx := 0
	for {
		i := strings.Index(lower[idx:], target)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(target)
		beforeOK := start == 0 || !isWordRune(rune(lower[start-1]))
		afterOK := end == len(lower) || !isWordRune(rune(lower[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ContainsPriceAction reports whether the text talks about the subject
// token's price or market action: the ticker must appear alongside a
// dollar amount or a price keyword at a word boundary ("dipping" does
// not count as "dip"). Market chatter about anything else does not
// burn the price-mention cooldown.
func ContainsPriceAction(s, ticker string) bool {
	if !mentionsTicker(s, ticker) {
		return false
	}
	if priceValueRE.MatchString(s) {
		return true
	}
	for _, kw := range priceKeywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(strings.ToLower(s), kw) {
				return true
			}
			continue
		}
		if ContainsWord(s, kw) {
			return true
		}
	}
	return false
}

// mentionsTicker matches the cashtag form anywhere and the bare symbol
// at a word boundary.
func mentionsTicker(s, ticker string) bool {
	if ticker == "" {
		return false
	}
	t := strings.ToLower(ticker)
	if strings.Contains(strings.ToLower(s), t) {
		return true
	}
	return ContainsWord(s, strings.TrimPrefix(t, "$"))
}

// TweetLen counts characters the way the platform does for our purposes:
// runes, not bytes.
func TweetLen(s string) int {
	return len([]rune(s))
}
