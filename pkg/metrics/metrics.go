package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics records outbox publishing and broadcast fan-out counters.
type EventMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	fanout    *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewEventMetrics registers the event metrics on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events successfully published to the broadcast channel.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox publish attempts that failed.",
	}, []string{"event_type"})
	fanout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_fanout_total",
		Help: "Events fanned out to subscribed dashboard sessions.",
	}, []string{"event_type"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_dropped_total",
		Help: "Events dropped because a session buffer was full or the event was stale.",
	}, []string{"reason"})
	reg.MustRegister(published, failed, fanout, dropped)
	return &EventMetrics{
		published: published,
		failed:    failed,
		fanout:    fanout,
		dropped:   dropped,
	}
}

// IncPublished increments the publish counter for the event type.
func (m *EventMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (m *EventMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFanout increments the fan-out counter for the event type.
func (m *EventMetrics) IncFanout(eventType string) {
	if m == nil || m.fanout == nil {
		return
	}
	m.fanout.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDropped increments the dropped counter for the given reason.
func (m *EventMetrics) IncDropped(reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
