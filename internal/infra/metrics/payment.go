package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(gatewayCallsTotal, gatewayLatencyMs, callbacksTotal)
}

var (
	gatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Outbound gateway calls by operation and result (ok/rejected/unreachable).",
		},
		[]string{"operation", "result"},
	)

	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_ms",
			Help:    "Gateway call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		},
		[]string{"operation"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Inbound payment callbacks by result (accepted/duplicate/rejected).",
		},
		[]string{"result"},
	)
)

func IncGatewayCall(operation, result string) {
	gatewayCallsTotal.WithLabelValues(norm(operation), norm(result)).Inc()
}

func ObserveGatewayLatency(operation string, ms float64) {
	gatewayLatencyMs.WithLabelValues(norm(operation)).Observe(ms)
}

func IncCallback(result string) {
	callbacksTotal.WithLabelValues(norm(result)).Inc()
}
