// Package monitor exposes Prometheus metrics for the signal pipeline.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_received_total", Help: "Webhook signals received"},
		[]string{"symbol", "action"},
	)
	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_rejected_total", Help: "Signals rejected by a gate"},
		[]string{"symbol", "gate"},
	)
	OrdersExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_executed_total", Help: "Orders accepted by the exchange"},
		[]string{"symbol", "side"},
	)
	OrdersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_failed_total", Help: "Orders that failed at the exchange"},
		[]string{"symbol"},
	)
	BracketsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "brackets_triggered_total", Help: "Stop loss and take profit triggers"},
		[]string{"symbol", "kind"},
	)
	ExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_execution_seconds",
			Help:    "End to end webhook handling latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsReceived, SignalsRejected, OrdersExecuted,
		OrdersFailed, BracketsTriggered, ExecutionSeconds,
	)
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
