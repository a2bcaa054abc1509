package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTooSimilarOverlap(t *testing.T) {
	prev := []string{"frogs winning the culture war one meme at a time"}

	assert.True(t, TooSimilar("frogs winning the culture war again today", prev))
	assert.False(t, TooSimilar("gm to everyone holding through the chop", prev))
}

func TestTooSimilarSharedShingle(t *testing.T) {
	prev := []string{"woke up chose pure violence today then bought more"}

	// Low overlap overall but a 3-word run in common.
	assert.True(t, TooSimilar("anyway chose pure violence then logged off forever", prev))
}

// The overlap ratio divides by the candidate's own word count, so a
// long fresh take is not rejected for sharing a few words with a short
// old post.
func TestTooSimilarLongCandidateShortHistory(t *testing.T) {
	prev := []string{"frogs love swamps"}

	candidate := "frogs love eating flies beside quiet swamps during long summer evenings obviously"
	assert.False(t, TooSimilar(candidate, prev))

	// The short direction still trips: nearly all candidate words used before.
	assert.True(t, TooSimilar("frogs love swamps forever", prev))
}

func TestTooSimilarStopWordsIgnored(t *testing.T) {
	// Shared words are all stop words; nothing substantive in common.
	prev := []string{"the a an and or in on"}
	assert.False(t, TooSimilar("to for of is are was were", prev))
}

func TestTooSimilarEmptyHistory(t *testing.T) {
	assert.False(t, TooSimilar("anything goes", nil))
}
