// Package topics keeps content-type rotation weights fresh from the
// topics table so the agent does not fall into a rut.
package topics

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/content"
	"github.com/pumpfrog/pepeagent/internal/store"
)

// Repository is the slice of the store this package needs.
type Repository interface {
	GetTopic(ctx context.Context, name string) (*store.Topic, error)
	UpsertTopic(ctx context.Context, t store.Topic) error
}

const (
	unusedWeight     = 10.0
	successBonus     = 1.5
	successThreshold = 0.8

	threadBaseProb     = 0.2
	threadCooldownProb = 0.1
	threadHotProb      = 0.4
)

// Manager computes rotation weights and records usage.
type Manager struct {
	repo Repository
	now  func() time.Time
	rand func() float64
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, now: time.Now, rand: rand.Float64}
}

// Weights returns a selection weight per content type. Never-used types
// get a large fixed weight; otherwise staleness grows the weight and a
// strong success rate boosts it.
func (m *Manager) Weights(ctx context.Context) map[string]float64 {
	weights := make(map[string]float64, len(content.AllTypes))
	for _, ct := range content.AllTypes {
		weights[ct] = m.weightFor(ctx, ct)
	}
	return weights
}

func (m *Manager) weightFor(ctx context.Context, contentType string) float64 {
	topic, err := m.repo.GetTopic(ctx, contentType)
	if err != nil {
		log.Warn().Err(err).Str("type", contentType).Msg("Topic lookup failed, using neutral weight")
		return 1
	}
	if topic == nil || !topic.LastUsed.Valid {
		return unusedWeight
	}

	hoursSince := m.now().Sub(topic.LastUsed.Time).Hours()
	weight := hoursSince / 2
	if weight < 1 {
		weight = 1
	}
	if topic.SuccessRate > successThreshold {
		weight *= successBonus
	}
	return weight
}

// RecordUse bumps usage bookkeeping after a post ships.
func (m *Manager) RecordUse(ctx context.Context, contentType string) error {
	topic, err := m.repo.GetTopic(ctx, contentType)
	if err != nil {
		return err
	}
	if topic == nil {
		topic = &store.Topic{TopicName: contentType, ContentType: contentType}
	}
	topic.LastUsed = sql.NullTime{Time: m.now(), Valid: true}
	topic.UsageCount++
	return m.repo.UpsertTopic(ctx, *topic)
}

// RecordOutcome folds an engagement result into the topic's running
// success rate and average engagement.
func (m *Manager) RecordOutcome(ctx context.Context, contentType string, engagement float64, success bool) error {
	topic, err := m.repo.GetTopic(ctx, contentType)
	if err != nil {
		return err
	}
	if topic == nil {
		topic = &store.Topic{TopicName: contentType, ContentType: contentType}
	}

	// Exponential moving averages keep old posts from dominating.
	const alpha = 0.3
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	if topic.UsageCount == 0 {
		topic.SuccessRate = outcome
		topic.AvgEngagement = engagement
	} else {
		topic.SuccessRate = (1-alpha)*topic.SuccessRate + alpha*outcome
		topic.AvgEngagement = (1-alpha)*topic.AvgEngagement + alpha*engagement
	}
	return m.repo.UpsertTopic(ctx, *topic)
}

// ShouldPostThread rolls for a thread instead of a single tweet. The
// probability drops inside the 24h cooldown after the last thread and
// rises when threads have been performing.
func (m *Manager) ShouldPostThread(ctx context.Context) bool {
	prob := threadBaseProb

	topic, err := m.repo.GetTopic(ctx, content.TypeThread)
	if err == nil && topic != nil {
		if topic.LastUsed.Valid && m.now().Sub(topic.LastUsed.Time) < 24*time.Hour {
			prob = threadCooldownProb
		} else if topic.SuccessRate > successThreshold {
			prob = threadHotProb
		}
	}
	return m.rand() < prob
}
