package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
)

// EventSubMetrics counts inbound message outcomes and webhook status changes.
type EventSubMetrics struct {
	Verifications *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
}

func NewEventSubMetrics(reg prometheus.Registerer) *EventSubMetrics {
	m := &EventSubMetrics{
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of inbound EventSub messages, by message type and outcome.",
		}, []string{"message_type", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_transitions_total",
			Help:      "Total number of applied webhook status transitions.",
		}, []string{"from", "to"}),
	}

	reg.MustRegister(m.Verifications, m.Transitions)
	return m
}

func (m *EventSubMetrics) RecordVerification(messageType eventsub.MessageType, outcome string) {
	m.Verifications.WithLabelValues(string(messageType), outcome).Inc()
}

func (m *EventSubMetrics) RecordTransition(from, to domain.WebhookStatus) {
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
}
