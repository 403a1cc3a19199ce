// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(ordersTotal, creditsGrantedTotal, creditsConsumedTotal, consumptionRejectedTotal, usersCreatedTotal)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order lifecycle events by resulting status (created/validated/cancelled).",
		},
		[]string{"status"},
	)

	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits added to user balances, by source (order/activation).",
		},
		[]string{"source"},
	)

	creditsConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_consumed_total",
			Help: "Credits debited by content generation.",
		},
	)

	consumptionRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_consumption_rejected_total",
			Help: "Consumption attempts that failed, by reason.",
		},
		[]string{"reason"},
	)

	usersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_created_total",
			Help: "Users created, by path (order/pre_register).",
		},
		[]string{"path"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Order helpers --------

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func IncUserCreated(path string) {
	usersCreatedTotal.WithLabelValues(norm(path)).Inc()
}

// -------- Credit helpers --------

func AddCreditsGranted(source string, n int64) {
	creditsGrantedTotal.WithLabelValues(norm(source)).Add(float64(n))
}

func AddCreditsConsumed(n int64) {
	creditsConsumedTotal.Add(float64(n))
}

func IncConsumptionRejected(reason string) {
	consumptionRejectedTotal.WithLabelValues(norm(reason)).Inc()
}
