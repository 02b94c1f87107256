package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		orderAmount,
	)
}

var (
	// result: created|empty_cart|insufficient_funds|out_of_stock|error
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Checkout attempts by result.",
		},
		[]string{"result"},
	)

	orderAmount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_final_amount",
			Help:    "Final amount of created orders in minor units.",
			Buckets: prometheus.ExponentialBuckets(10000, 2.5, 8),
		},
	)
)

func IncOrder(result string) {
	ordersTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveOrderAmount(amount int64) {
	orderAmount.Observe(float64(amount))
}
