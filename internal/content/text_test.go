package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"wrapping quotes", `"gm frens"`, "gm frens"},
		{"smart quotes", "“gm frens”", "gm frens"},
		{"preamble", "Here's the tweet: gm frens", "gm frens"},
		{"tweet prefix", "Tweet: gm frens", "gm frens"},
		{"whitespace collapse", "gm\n\n  frens\t again", "gm frens again"},
		{"interior quotes kept", `"gm" said the frog "gn"`, `"gm" said the frog "gn"`},
		{"emoji stripped", "gm frens \U0001F438", "gm frens"},
		{"emoji mid-text", "gm \U0001F438\U0001F338 frens", "gm frens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestStripEmojis(t *testing.T) {
	assert.Equal(t, "gm frens ", StripEmojis("gm frens \U0001F438"))
	assert.Equal(t, "no emoji here", StripEmojis("no emoji here"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, ContainsWord("gm frens", "gm"))
	assert.True(t, ContainsWord("GM everyone", "gm"))
	assert.True(t, ContainsWord("ok gm", "gm"))
	assert.False(t, ContainsWord("gmt offset", "gm"))
	assert.False(t, ContainsWord("program", "gm"))
}

func TestContainsPriceAction(t *testing.T) {
	assert.True(t, ContainsPriceAction("$PFP hit $1.5m today", "$PFP"))
	assert.True(t, ContainsPriceAction("pfp chart looking healthy", "$PFP"))
	assert.True(t, ContainsPriceAction("new ATH incoming for $pfp", "$PFP"))
	assert.True(t, ContainsPriceAction("$PFP market cap says otherwise", "$PFP"))
	assert.False(t, ContainsPriceAction("gm frens, lovely morning on the lily pad", "$PFP"))
	assert.False(t, ContainsPriceAction("$pfp dipping my toes in the swamp", "$PFP")) // "dipping" is not "dip"
}

// Price talk without the subject token does not count as a mention: a
// stray "pump" or "volume" must not burn the 24h cooldown.
func TestContainsPriceActionRequiresSubject(t *testing.T) {
	assert.False(t, ContainsPriceAction("volume looking healthy today", "$PFP"))
	assert.False(t, ContainsPriceAction("everything is pumping except my mood", "$PFP"))
	assert.False(t, ContainsPriceAction("we hit $1.5m today", "$PFP"))
	assert.True(t, ContainsPriceAction("$PFP volume looking healthy today", "$PFP"))
	assert.False(t, ContainsPriceAction("$PFP volume looking healthy", ""))
}

func TestHashtags(t *testing.T) {
	assert.Equal(t, []string{"#frog", "#gm"}, Hashtags("morning #frog squad #gm"))
	assert.Empty(t, Hashtags("no tags here"))
}

func TestTweetLenCountsRunes(t *testing.T) {
	assert.Equal(t, 2, TweetLen("\U0001F438\U0001F438"))
}
