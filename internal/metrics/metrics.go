// Package metrics exposes the agent's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set holds every collector the agent registers.
type Set struct {
	Registry *prometheus.Registry

	PostsTotal      *prometheus.CounterVec
	RepliesTotal    *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	QuotaDenials    prometheus.Counter
	ReplyQuota      prometheus.Gauge
}

// New builds and registers the collector set on a fresh registry.
func New() *Set {
	s := &Set{
		Registry: prometheus.NewRegistry(),
		PostsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pepeagent_posts_total",
			Help: "Posts published, by content type.",
		}, []string{"content_type"}),
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pepeagent_replies_total",
			Help: "Replies published, by producer.",
		}, []string{"source"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pepeagent_draft_rejections_total",
			Help: "Draft rejections, by gate.",
		}, []string{"gate"}),
		QuotaDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pepeagent_reply_quota_denials_total",
			Help: "Reply attempts denied by the shared hourly budget.",
		}),
		ReplyQuota: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pepeagent_reply_quota_remaining",
			Help: "Remaining replies in the sliding hourly window.",
		}),
	}

	s.Registry.MustRegister(
		s.PostsTotal, s.RepliesTotal, s.RejectionsTotal,
		s.QuotaDenials, s.ReplyQuota,
	)
	return s
}
