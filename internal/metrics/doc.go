// Package metrics instruments conversation turns with Prometheus collectors.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation:
//
//	m := metrics.New(prometheus.NewRegistry())
//	d := dispatch.New(state, saver, connector, dispatch.WithMetrics(m))
//
// Collectors:
//
//	chorus_turns_total                      completed turns
//	chorus_turn_duration_seconds            submit to idle
//	chorus_replies_total{outcome}           per-assistant replies, ok or error
//	chorus_stream_deltas_total              content fragments applied
//	chorus_rejected_submissions_total{reason}
//	chorus_state_saves_total{outcome}
package metrics
