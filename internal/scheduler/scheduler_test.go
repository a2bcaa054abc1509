package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pumpfrog/pepeagent/internal/config"
)

func testScheduleConfig() config.ScheduleConfig {
	return config.ScheduleConfig{
		PostInterval:    2 * time.Hour,
		MinInterval:     1 * time.Hour,
		MaxInterval:     4 * time.Hour,
		MentionInterval: 10 * time.Millisecond,
	}
}

func TestNextIntervalJitterBounds(t *testing.T) {
	s := New(testScheduleConfig(), nil, nil)

	s.rand = func() float64 { return 0 }
	assert.Equal(t, 90*time.Minute, s.nextInterval())

	s.rand = func() float64 { return 1 }
	assert.Equal(t, 150*time.Minute, s.nextInterval())

	s.rand = func() float64 { return 0.5 }
	assert.Equal(t, 2*time.Hour, s.nextInterval())
}

func TestNextIntervalClamped(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.PostInterval = 30 * time.Minute // jitter range falls below the floor
	s := New(cfg, nil, nil)

	s.rand = func() float64 { return 0 }
	assert.Equal(t, cfg.MinInterval, s.nextInterval())

	cfg.PostInterval = 10 * time.Hour
	s = New(cfg, nil, nil)
	s.rand = func() float64 { return 1 }
	assert.Equal(t, cfg.MaxInterval, s.nextInterval())
}

func TestMentionLoopRunsAndStops(t *testing.T) {
	var mentions atomic.Int32
	s := New(testScheduleConfig(), func(context.Context) {}, func(context.Context) {
		mentions.Add(1)
	})

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	// Let the mention poller tick a few times, then stop.
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Greater(t, mentions.Load(), int32(0))
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(testScheduleConfig(), nil, nil)
	s.Stop()
	s.Stop() // must not panic
}

func TestContextCancelStopsRun(t *testing.T) {
	s := New(testScheduleConfig(), func(context.Context) {}, func(context.Context) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler ignored context cancel")
	}
}
