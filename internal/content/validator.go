package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pumpfrog/pepeagent/internal/config"
)

// Structural validation rejects text that could get the account flagged:
// over-length, hashtag spam, shill language, scammy promises, sketchy
// links. These checks are deterministic; taste is the critic's job.

var (
	profanityWords = []string{"fuck", "shit", "bitch", "cunt", "retard"}

	urgencyPhrases = []string{
		"act now", "hurry", "last chance", "don't miss", "dont miss",
		"limited time", "before it's too late",
	}

	pricePromiseRE = regexp.MustCompile(`(?i)\bwill (hit|reach|go to|moon to) \$?\d`)
	gainPromiseRE  = regexp.MustCompile(`(?i)\b\d+x\b.{0,20}\b(gains?|returns?|profits?)\b|\b(gains?|returns?|profits?)\b.{0,20}\b\d+x\b`)
	guaranteeRE    = regexp.MustCompile(`(?i)\bguaranteed?\b`)

	urlRE        = regexp.MustCompile(`https?://[^\s]+`)
	bareIPHostRE = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}`)
)

var shortenerHosts = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"goo.gl":      true,
	"ow.ly":       true,
}

// Validator applies the structural gates.
type Validator struct {
	maxLength   int
	maxHashtags int
}

func NewValidator(cfg config.ContentConfig) *Validator {
	return &Validator{maxLength: cfg.MaxLength, maxHashtags: cfg.MaxHashtags}
}

// Check returns nil if the text is structurally postable, or an error
// naming the first failed gate.
func (v *Validator) Check(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty text")
	}
	if n := TweetLen(text); n > v.maxLength {
		return fmt.Errorf("too long: %d > %d chars", n, v.maxLength)
	}
	if n := len(Hashtags(text)); n > v.maxHashtags {
		return fmt.Errorf("hashtag spam: %d > %d", n, v.maxHashtags)
	}
	for _, w := range profanityWords {
		if ContainsWord(text, w) {
			return fmt.Errorf("profanity: %q", w)
		}
	}
	lower := strings.ToLower(text)
	for _, p := range urgencyPhrases {
		if strings.Contains(lower, p) {
			return fmt.Errorf("urgency bait: %q", p)
		}
	}
	if pricePromiseRE.MatchString(text) {
		return fmt.Errorf("price promise")
	}
	if gainPromiseRE.MatchString(text) {
		return fmt.Errorf("gain promise")
	}
	if guaranteeRE.MatchString(text) {
		return fmt.Errorf("guarantee language")
	}
	if host := suspiciousURL(text); host != "" {
		return fmt.Errorf("suspicious url host: %s", host)
	}
	return nil
}

// suspiciousURL returns the offending host if the text links to a bare
// IP or a link shortener. The platform's own t.co wrapper is exempt.
func suspiciousURL(text string) string {
	for _, u := range urlRE.FindAllString(text, -1) {
		host := u
		host = strings.TrimPrefix(host, "https://")
		host = strings.TrimPrefix(host, "http://")
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		host = strings.ToLower(host)
		if host == "t.co" {
			continue
		}
		if bareIPHostRE.MatchString(host) || shortenerHosts[host] {
			return host
		}
	}
	return ""
}

// Sanitize is the lighter rewrite used between thread attempts: trims to
// the length budget at a word boundary and drops excess hashtags.
func (v *Validator) Sanitize(text string) string {
	text = CleanText(text)
	tags := Hashtags(text)
	for i := v.maxHashtags; i < len(tags); i++ {
		text = strings.Replace(text, tags[i], "", 1)
	}
	text = strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))

	runes := []rune(text)
	if len(runes) <= v.maxLength {
		return text
	}
	cut := string(runes[:v.maxLength])
	if i := strings.LastIndex(cut, " "); i > v.maxLength/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
