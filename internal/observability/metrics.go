package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_generated_total",
			Help: "Total tickets minted from paid orders",
		},
	)

	ticketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_validations_total",
			Help: "Validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	ticketUsages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_usages_total",
			Help: "Mark-used attempts by outcome",
		},
		[]string{"outcome"},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_webhooks_received_total",
			Help: "Shopify webhook deliveries by result",
		},
		[]string{"result"},
	)
)

func TicketsGenerated(n int) {
	ticketsGenerated.Add(float64(n))
}

func TicketValidation(success bool) {
	ticketValidations.WithLabelValues(outcome(success)).Inc()
}

func TicketUsage(success bool) {
	ticketUsages.WithLabelValues(outcome(success)).Inc()
}

func WebhookReceived(result string) {
	webhooksReceived.WithLabelValues(result).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "rejected"
}
