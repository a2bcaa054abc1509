package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpfrog/pepeagent/internal/config"
)

func testValidator() *Validator {
	return NewValidator(config.ContentConfig{MaxLength: 280, MaxHashtags: 3})
}

func TestCheckAcceptsNormalTweet(t *testing.T) {
	v := testValidator()
	assert.NoError(t, v.Check("gm frens, another day of being unemployed and unbothered"))
}

func TestCheckRejections(t *testing.T) {
	v := testValidator()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "   ", "empty"},
		{"too long", strings.Repeat("ribbit ", 50), "too long"},
		{"hashtag spam", "go #a #b #c #d", "hashtag spam"},
		{"urgency", "last chance to join the swamp", "urgency bait"},
		{"price promise", "this will hit $5 by friday", "price promise"},
		{"gain promise", "easy 100x gains for holders", "gain promise"},
		{"guarantee", "guaranteed to make it", "guarantee"},
		{"shortener link", "trust me https://bit.ly/xyz", "suspicious url"},
		{"bare ip link", "join http://192.168.1.1/drop", "suspicious url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckAllowsPlatformShortener(t *testing.T) {
	v := testValidator()
	assert.NoError(t, v.Check("context here https://t.co/abc123"))
}

func TestSanitizeTrimsToBudget(t *testing.T) {
	v := NewValidator(config.ContentConfig{MaxLength: 40, MaxHashtags: 1})

	out := v.Sanitize("a very long ribbit about absolutely nothing in particular today")
	assert.LessOrEqual(t, TweetLen(out), 40)
	assert.False(t, strings.HasSuffix(out, " "))
}

func TestSanitizeDropsExcessHashtags(t *testing.T) {
	v := NewValidator(config.ContentConfig{MaxLength: 280, MaxHashtags: 1})

	out := v.Sanitize("swamp life #frog #gm #wagmi")
	assert.Len(t, Hashtags(out), 1)
}
