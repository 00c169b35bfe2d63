package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(ordersTotal, ordersExpiredTotal)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order state transitions (created/paid/cancelled/refunded).",
		},
		[]string{"transition"},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Pending orders cancelled past their expiry window.",
		},
	)
)

func IncOrder(transition string) {
	ordersTotal.WithLabelValues(norm(transition)).Inc()
}

func AddOrdersExpired(n int64) {
	if n > 0 {
		ordersExpiredTotal.Add(float64(n))
	}
}
