// Package metrics exposes Prometheus metrics for the HTTP gateway and the
// ledger engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// CodeHeader carries the gateway's error code on failed responses. The
// middleware reads it back so rejections are counted per ledger code.
const CodeHeader = "X-Tokensender-Code"

// codeOK labels responses that carry no error code.
const codeOK = "OK"

var (
	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tokensender",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Gateway request latency by route",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"method", "route"},
	)

	gatewayResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokensender",
			Subsystem: "gateway",
			Name:      "responses_total",
			Help:      "Gateway responses by route, status and ledger error code",
		},
		[]string{"method", "route", "status", "code"},
	)
)

func init() {
	prometheus.MustRegister(gatewayRequestDuration)
	prometheus.MustRegister(gatewayResponsesTotal)
}

// Middleware records gateway latency and responses. Scrapes of /metrics
// are not counted.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			var pattern string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			route := routeLabel(pattern)
			if route == "/metrics" {
				return
			}

			gatewayRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			gatewayResponsesTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.status), codeLabel(ww.Header())).Inc()
		})
	}
}

// routeLabel maps a chi pattern to a label. Unmatched requests share one
// label so arbitrary paths cannot grow the series count.
func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

func codeLabel(h http.Header) string {
	if code := h.Get(CodeHeader); code != "" {
		return code
	}
	return codeOK
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// GatewayResponses returns the response counter for one label set.
func GatewayResponses(method, route, status, code string) prometheus.Counter {
	return gatewayResponsesTotal.WithLabelValues(method, route, status, code)
}
