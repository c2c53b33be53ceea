// Package metrics provides Prometheus instrumentation for the trading engine.
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
	// TradesTotal counts total trades executed, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betthat_trades_total",
		Help: "Total number of trades executed",
	}, []string{"side"})

	// TradeVolume tracks cumulative matched contract volume per market.
	TradeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betthat_trade_volume_total",
		Help: "Cumulative matched volume in contracts",
	}, []string{"market_id", "side"})

	// OrdersTotal counts submitted orders by kind and final state.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betthat_orders_total",
		Help: "Total orders submitted",
	}, []string{"kind", "state"})

	// SubmitLatency is the end-to-end order submission latency.
	SubmitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betthat_submit_latency_seconds",
		Help:    "Order submission latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// CancellationsTotal counts cancelled orders.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betthat_cancellations_total",
		Help: "Total orders cancelled",
	})

	// ResolutionsTotal counts resolved outcome-groups by winning side.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betthat_resolutions_total",
		Help: "Total outcome resolutions",
	}, []string{"winner"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betthat_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betthat_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betthat_http_request_duration_seconds",
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
