package content

import (
	"regexp"
	"strings"
)

var tokenRE = regexp.MustCompile(`[a-z0-9$#@']+`)

var similarityStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "is": true, "are": true, "was": true,
	"were": true,
}

// overlapThreshold is the content-word overlap ratio above which two
// texts read as the same take.
const overlapThreshold = 0.6

func contentWords(s string) []string {
	raw := tokenRE.FindAllString(strings.ToLower(s), -1)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if !similarityStopWords[w] {
			words = append(words, w)
		}
	}
	return words
}

// TooSimilar reports whether candidate rehashes any of the previous
// texts: either the content-word overlap exceeds the threshold, or the
// two share a run of three consecutive words.
func TooSimilar(candidate string, previous []string) bool {
	candWords := contentWords(candidate)
	candSet := toSet(candWords)

	for _, prev := range previous {
		prevWords := contentWords(prev)
		if len(prevWords) == 0 || len(candWords) == 0 {
			continue
		}

		shared := 0
		prevSet := toSet(prevWords)
		for w := range candSet {
			if prevSet[w] {
				shared++
			}
		}
		// Ratio is over the candidate's own words: a long fresh take is
		// not penalized for briefly touching a short old one.
		if len(candSet) > 0 && float64(shared)/float64(len(candSet)) > overlapThreshold {
			return true
		}

		if sharesShingle(candWords, prevWords, 3) {
			return true
		}
	}
	return false
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func sharesShingle(a, b []string, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	seen := map[string]bool{}
	for i := 0; i+n <= len(a); i++ {
		seen[strings.Join(a[i:i+n], " ")] = true
	}
	for i := 0; i+n <= len(b); i++ {
		if seen[strings.Join(b[i:i+n], " ")] {
			return true
		}
	}
	return false
}
