// Package metrics provides Prometheus instrumentation for the coin engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CoinsSeeded counts system coins seeded into grids by the
	// distribution engine.
	CoinsSeeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geohunt_coins_seeded_total",
		Help: "System coins seeded into grid cells",
	})

	// CoinsRecycled counts system coins reclaimed from idle grids.
	CoinsRecycled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geohunt_coins_recycled_total",
		Help: "System coins reclaimed from idle grid cells",
	})

	// CoinsHidden counts coins hidden by players.
	CoinsHidden = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geohunt_coins_hidden_total",
		Help: "Coins hidden by players",
	})

	// CollectsTotal counts collection attempts partitioned by result.
	CollectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geohunt_collects_total",
		Help: "Collection attempts by result",
	}, []string{"result"})

	// PayoutAmount is a histogram of settled collection values.
	PayoutAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geohunt_payout_amount_dollars",
		Help:    "Value received per collection",
		Buckets: []float64{0.05, 0.10, 0.25, 0.50, 1.0, 2.5, 5.0, 10.0},
	})

	// GasCharged tracks cumulative daily gas consumed across wallets.
	GasCharged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geohunt_gas_charged_dollars_total",
		Help: "Cumulative daily gas charged",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geohunt_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geohunt_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geohunt_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
