package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		gatewayCallsTotal,
		gatewayCallDuration,
	)
}

var (
	// op: create|get
	// result: ok|unavailable|rejected|retry
	gatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Outbound payment gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_call_duration_seconds",
			Help:    "Latency of outbound payment gateway calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"op"},
	)
)

func IncGatewayCall(op, result string) {
	gatewayCallsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}

func ObserveGatewayCall(op string, seconds float64) {
	gatewayCallDuration.WithLabelValues(norm(op)).Observe(seconds)
}
