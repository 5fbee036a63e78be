// Package metrics exposes Prometheus counters for session transitions and
// reaction/comment outcomes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "urcuisine"

// Outcome labels.
const (
	OutcomeReconciled      = "reconciled"
	OutcomeRolledBack      = "rolled_back"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeRejected        = "rejected"
	OutcomeAppended        = "appended"
	OutcomeFailed          = "failed"
)

// Metrics groups the client's collectors.
type Metrics struct {
	sessionTransitions *prometheus.CounterVec
	toggles            *prometheus.CounterVec
	comments           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is useful in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state machine transitions.",
		}, []string{"from", "to"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interaction",
			Name:      "toggles_total",
			Help:      "Like/dislike toggles by kind and settle outcome.",
		}, []string{"kind", "outcome"}),
		comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comment",
			Name:      "submissions_total",
			Help:      "Comment submissions by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.sessionTransitions, m.toggles, m.comments)
	}
	return m
}

// SessionTransition records a state change of the session manager.
func (m *Metrics) SessionTransition(from, to string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(from, to).Inc()
}

// Toggle records how a like/dislike toggle settled.
func (m *Metrics) Toggle(kind, outcome string) {
	if m == nil {
		return
	}
	m.toggles.WithLabelValues(kind, outcome).Inc()
}

// Comment records how a comment submission ended.
func (m *Metrics) Comment(outcome string) {
	if m == nil {
		return
	}
	m.comments.WithLabelValues(outcome).Inc()
}
