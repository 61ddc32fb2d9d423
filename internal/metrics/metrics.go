// ABOUTME: Prometheus collectors for turns, replies, deltas, and saves
// ABOUTME: Methods on a nil receiver are no-ops

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the registered collectors.
type Metrics struct {
	turns        prometheus.Counter
	turnDuration prometheus.Histogram
	replies      *prometheus.CounterVec
	deltas       prometheus.Counter
	rejected     *prometheus.CounterVec
	saves        *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorus_turns_total",
			Help: "Completed conversation turns.",
		}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chorus_turn_duration_seconds",
			Help:    "Time from submission to linearized replies.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorus_replies_total",
			Help: "Assistant replies by outcome.",
		}, []string{"outcome"}),
		deltas: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorus_stream_deltas_total",
			Help: "Streamed content fragments applied to replies.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorus_rejected_submissions_total",
			Help: "Submissions rejected before any mutation, by reason.",
		}, []string{"reason"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorus_state_saves_total",
			Help: "State persistence attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.turns, m.turnDuration, m.replies, m.deltas, m.rejected, m.saves)
	return m
}

// TurnDone records a finished turn.
func (m *Metrics) TurnDone(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turns.Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

// Reply records one assistant reply.
func (m *Metrics) Reply(err error) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(outcome(err)).Inc()
}

// Delta records one applied fragment.
func (m *Metrics) Delta() {
	if m == nil {
		return
	}
	m.deltas.Inc()
}

// Rejected records a refused submission.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Save records a persistence attempt.
func (m *Metrics) Save(err error) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
