// Package scheduler drives the agent's two loops: the jittered posting
// cycle and the independent mention poller.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pumpfrog/pepeagent/internal/config"
)

// joinTimeout bounds how long shutdown waits for the mention poller.
const joinTimeout = 5 * time.Second

// Cycle is one unit of scheduled work.
type Cycle func(ctx context.Context)

// Scheduler runs the posting cycle on a jittered interval and the
// mention cycle on a fixed one, in its own goroutine.
type Scheduler struct {
	cfg     config.ScheduleConfig
	post    Cycle
	mention Cycle
	rand    func() float64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg config.ScheduleConfig, post, mention Cycle) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		post:    post,
		mention: mention,
		rand:    rand.Float64,
		stop:    make(chan struct{}),
	}
}

// Run blocks, executing posting cycles until Stop or context cancel.
// The mention poller runs concurrently and is joined on the way out,
// bounded by joinTimeout.
func (s *Scheduler) Run(ctx context.Context) {
	if s.mention != nil {
		s.wg.Add(1)
		go s.mentionLoop(ctx)
	}

	log.Info().Dur("base_interval", s.cfg.PostInterval).Msg("Scheduler started")
	for {
		next := s.nextInterval()
		log.Info().Time("next_post", time.Now().Add(next)).Msg("Next posting cycle scheduled")

		select {
		case <-time.After(next):
			s.post(ctx)
		case <-s.stop:
			s.join()
			return
		case <-ctx.Done():
			s.join()
			return
		}
	}
}

// Stop ends the loops; safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) mentionLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.MentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mention(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) join() {
	s.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("Scheduler stopped")
	case <-time.After(joinTimeout):
		log.Warn().Msg("Mention poller did not stop in time, abandoning")
	}
}

// nextInterval jitters the base interval by ±25% and clamps it inside
// the configured bounds.
func (s *Scheduler) nextInterval() time.Duration {
	jitter := 0.75 + s.rand()*0.5
	next := time.Duration(float64(s.cfg.PostInterval) * jitter)
	if next < s.cfg.MinInterval {
		next = s.cfg.MinInterval
	}
	if next > s.cfg.MaxInterval {
		next = s.cfg.MaxInterval
	}
	return next
}
