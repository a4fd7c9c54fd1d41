// Package metrics holds the Prometheus instrumentation for goodytv.
//
// Exposed at GET /metrics:
//
//	goodytv_http_requests_total             counter   method, path, status
//	goodytv_http_request_duration_seconds   histogram method, path
//	goodytv_webhook_events_total            counter   type, result
//	goodytv_licenses_issued_total           counter   source (client_reference, fallback, duplicate)
//	goodytv_notifications_total             counter   result
//	goodytv_payment_checks_total            counter   paid
//	goodytv_playlist_fetches_total          counter   kind, result
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "goodytv_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "goodytv_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// WebhookEvents counts webhook deliveries by event type and how they ended
// (processed, ignored, rejected, failed).
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "goodytv_webhook_events_total",
	Help: "Payment webhook deliveries.",
}, []string{"type", "result"})

var LicensesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "goodytv_licenses_issued_total",
	Help: "License keys recorded, by device id source.",
}, []string{"source"})

var Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "goodytv_notifications_total",
	Help: "License notification dispatch attempts.",
}, []string{"result"})

var PaymentChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "goodytv_payment_checks_total",
	Help: "Payment status lookups.",
}, []string{"paid"})

// PlaylistFetches counts playlist and guide downloads (kind m3u|xmltv).
var PlaylistFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "goodytv_playlist_fetches_total",
	Help: "Playlist and guide fetches.",
}, []string{"kind", "result"})

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. Paths are taken from the
// mux pattern when one matched, so ids in query strings never become labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
