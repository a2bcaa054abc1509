package engagement

import (
	"context"

	"github.com/rs/zerolog/log"
)

// AccountMonitor watches a fixed list of accounts and occasionally
// replies to their fresh tweets, putting the agent in front of larger
// audiences. At most one reply per monitored account per cycle.
type AccountMonitor struct {
	replier  *Replier
	filter   *Filter
	accounts []string
	perFetch int
}

func NewAccountMonitor(replier *Replier, filter *Filter, accounts []string) *AccountMonitor {
	return &AccountMonitor{
		replier:  replier,
		filter:   filter,
		accounts: accounts,
		perFetch: 5,
	}
}

// Run checks each monitored account once. Returns replies sent.
func (m *AccountMonitor) Run(ctx context.Context) int {
	sent := 0
	for _, account := range m.accounts {
		if m.replier.limiter.RemainingQuota() == 0 {
			log.Info().Msg("Reply budget exhausted, pausing account monitoring")
			break
		}

		tweets, err := m.replier.poster.GetUserRecentTweets(ctx, account, m.perFetch)
		if err != nil {
			log.Warn().Err(err).Str("account", account).Msg("Monitored account fetch failed")
			continue
		}

		for _, t := range RankComments(tweets) {
			if ok, reason := m.filter.Worthy(t); !ok {
				log.Debug().Str("tweet", t.ID).Str("reason", reason).Msg("Monitored tweet skipped")
				continue
			}
			if err := m.replier.ReplyTo(ctx, "monitor", t, ""); err != nil {
				log.Debug().Err(err).Str("tweet", t.ID).Msg("Monitor reply skipped")
				continue
			}
			sent++
			break // one reply per account per cycle
		}
	}
	return sent
}
