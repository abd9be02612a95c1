// metrics.go - Prometheus metrics for the HTTP surface and the file
// lifecycle. HTTP metrics are recorded by middleware; business counters
// are bumped from the handlers and the sweep.
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrop_http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filedrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrop_uploads_total",
		Help: "Successful file uploads",
	})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrop_upload_bytes_total",
		Help: "Bytes written by successful uploads",
	})

	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrop_downloads_total",
		Help: "Completed file downloads",
	})

	loginFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrop_login_failures_total",
		Help: "Rejected login attempts",
	})

	expiredDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrop_expired_files_deleted_total",
		Help: "File records removed by expiry sweeps",
	})
)

// metricsMiddleware records request counts and latency per endpoint.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)

		mw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(mw, r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(mw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses id-carrying paths to a fixed label so metric
// cardinality stays bounded no matter what ids clients invent.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/download/"):
		return "/download/{id}"
	case strings.HasPrefix(path, "/delete/"):
		return "/delete/{id}"
	}
	return path
}

// statusResponseWriter captures the response status for metrics labels.
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
