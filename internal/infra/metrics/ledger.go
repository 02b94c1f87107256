package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerOperationsTotal,
		ledgerAmountTotal,
	)
}

var (
	// type: DEPOSIT|PURCHASE|WITHDRAWAL|SUBSCRIPTION
	// result: ok|insufficient|error
	ledgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Balance mutations by transaction type and result.",
		},
		[]string{"type", "result"},
	)

	ledgerAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_amount_total",
			Help: "Sum of committed balance mutations in minor units by transaction type.",
		},
		[]string{"type"},
	)
)

func IncLedgerOp(txType, result string) {
	ledgerOperationsTotal.WithLabelValues(norm(txType), norm(result)).Inc()
}

func AddLedgerAmount(txType string, amount int64) {
	ledgerAmountTotal.WithLabelValues(norm(txType)).Add(float64(amount))
}
