package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/tokensender/internal/ir"
)

var (
	ledgerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokensender",
			Name:      "ledger_requests_total",
			Help:      "Ledger requests by entry point, action and outcome",
		},
		[]string{"kind", "action", "outcome"},
	)

	ledgerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tokensender",
			Name:      "ledger_request_duration_seconds",
			Help:      "Time to process a ledger request, including its store transaction",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"kind", "action"},
	)
)

func init() {
	prometheus.MustRegister(ledgerRequestsTotal)
	prometheus.MustRegister(ledgerRequestDuration)
}

// Ledger records engine requests. It implements engine.Observer.
type Ledger struct{}

// ObserveRequest counts one processed request and records its duration.
func (Ledger) ObserveRequest(kind ir.RequestKind, action, outcome string, elapsed time.Duration) {
	ledgerRequestsTotal.WithLabelValues(string(kind), action, outcome).Inc()
	ledgerRequestDuration.WithLabelValues(string(kind), action).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
