package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service reports ready, 0 otherwise.",
	})

	documentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_transitions_total",
			Help: "Document lifecycle transitions by kind and target status.",
		},
		[]string{"kind", "status"},
	)
)

// Init registers the service metrics in the default registry.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, ready, documentTransitions)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the current readiness state.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
	} else {
		ready.Set(0)
	}
}

// ObserveTransition counts a completed lifecycle transition.
func ObserveTransition(kind, status string) {
	documentTransitions.WithLabelValues(kind, status).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-record identifiers so metric label cardinality
// stays bounded. Public tokens must never appear as label values.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	switch {
	case len(parts) >= 3 && parts[1] == "public":
		// /offer/public/<token>[/respond], /service-agreement/public/<token>[/respond]
		rest := ""
		if len(parts) > 3 {
			rest = "/" + strings.Join(parts[3:], "/")
		}
		return "/" + parts[0] + "/public/:token" + rest
	case len(parts) >= 4 && parts[0] == "v1" && parts[1] == "auth" && parts[2] == "accounts":
		rest := ""
		if len(parts) > 4 {
			rest = "/" + strings.Join(parts[4:], "/")
		}
		return "/v1/auth/accounts/:id" + rest
	case len(parts) >= 3 && parts[0] == "v1":
		collection := parts[1]
		switch collection {
		case "customers", "buildings", "reports", "documents":
			rest := ""
			if len(parts) > 3 {
				rest = "/" + strings.Join(parts[3:], "/")
			}
			return "/v1/" + collection + "/:id" + rest
		}
	}
	return path
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
