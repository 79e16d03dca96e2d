// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Purchase outcomes recorded by PurchaseOutcomes.
const (
	OutcomeCompleted      = "completed"
	OutcomeNotFound       = "not_found"
	OutcomeInvalid        = "invalid"
	OutcomeSoldOut        = "insufficient_inventory"
	OutcomeDeclined       = "payment_declined"
	OutcomeInternalFailed = "error"
)

var (
	// PurchaseOutcomes counts finished purchase attempts by terminal state.
	PurchaseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TicketsSold counts tickets moved to SOLD.
	TicketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_sold_total",
			Help: "Tickets sold across all concerts",
		},
	)

	// TicketsReleased counts tickets returned to stock after a failed
	// purchase or a cancelled order.
	TicketsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_released_total",
			Help: "Tickets returned to stock",
		},
		[]string{"reason"},
	)

	// LockWait observes how long FindAvailable waited for a concert lock.
	LockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concert_lock_wait_seconds",
			Help:    "Time spent waiting for a per-concert inventory lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// ChargeDuration observes payment gateway latency by result.
	ChargeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_charge_duration_seconds",
			Help:    "Payment gateway charge latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)
