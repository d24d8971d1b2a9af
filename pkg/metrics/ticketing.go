package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TicketingMetrics records counters for the purchase and admission paths.
type TicketingMetrics struct {
	ordersCreated *prometheus.CounterVec
	fulfillments  *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	checkins      *prometheus.CounterVec
}

// NewTicketingMetrics registers the ticketing metrics on the provided registerer.
func NewTicketingMetrics(reg prometheus.Registerer) *TicketingMetrics {
	if reg == nil {
		return &TicketingMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labeled by payment path.",
	}, []string{"path"})
	fulfillments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_fulfillments_total",
		Help: "Fulfillment attempts, labeled by outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment provider webhook events, labeled by type.",
	}, []string{"type"})
	checkins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_checkins_total",
		Help: "Door check-in attempts, labeled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersCreated, fulfillments, webhookEvents, checkins)
	return &TicketingMetrics{
		ordersCreated: ordersCreated,
		fulfillments:  fulfillments,
		webhookEvents: webhookEvents,
		checkins:      checkins,
	}
}

// IncOrderCreated increments the orders counter for the named payment path.
func (m *TicketingMetrics) IncOrderCreated(path string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncFulfillment increments the fulfillment counter for the named outcome.
func (m *TicketingMetrics) IncFulfillment(outcome string) {
	if m == nil || m.fulfillments == nil {
		return
	}
	m.fulfillments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent increments the webhook counter for the event type.
func (m *TicketingMetrics) IncWebhookEvent(eventType string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncCheckin increments the check-in counter for the named outcome.
func (m *TicketingMetrics) IncCheckin(outcome string) {
	if m == nil || m.checkins == nil {
		return
	}
	m.checkins.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
