package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the moodweather collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodweather",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "moodweather",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	recomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodweather",
			Subsystem: "stats",
			Name:      "recomputes_total",
			Help:      "Total number of user stats recomputations.",
		},
		[]string{"result"},
	)

	recomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "moodweather",
			Subsystem: "stats",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of user stats recomputations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	badgesUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodweather",
			Subsystem: "badges",
			Name:      "unlocked_total",
			Help:      "Total number of badge unlocks.",
		},
		[]string{"badge"},
	)

	syncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodweather",
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Sync items by outcome.",
		},
		[]string{"status"},
	)

	mindfulEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodweather",
			Subsystem: "mindful",
			Name:      "events_total",
			Help:      "Mindful-moment events by source.",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		recomputes,
		recomputeDuration,
		badgesUnlocked,
		syncItems,
		mindfulEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRecompute records one stats recomputation.
func RecordRecompute(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	recomputes.WithLabelValues(result).Inc()
	recomputeDuration.Observe(duration.Seconds())
}

// RecordBadgeUnlocked counts a first-time unlock.
func RecordBadgeUnlocked(badgeID string) {
	badgesUnlocked.WithLabelValues(badgeID).Inc()
}

// RecordSyncItem counts one reconciled item by status.
func RecordSyncItem(status string) {
	syncItems.WithLabelValues(status).Inc()
}

// RecordMindfulEvent counts a mindful moment; source is "http" or "stream".
func RecordMindfulEvent(source string) {
	mindfulEvents.WithLabelValues(source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath keeps the first two segments below /api/v1 so ids don't explode label cardinality
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "v1" {
		parts = parts[2:]
		if len(parts) > 2 {
			parts = parts[:2]
		}
		if len(parts) == 2 && !isStaticSegment(parts[1]) {
			parts[1] = ":id"
		}
		return "/api/v1/" + strings.Join(parts, "/")
	}
	return "/" + parts[0]
}

var staticSegments = map[string]struct{}{
	"user": {}, "calendar": {}, "recalculate": {}, "status": {}, "mindful": {},
	"current": {}, "analyze": {}, "csv": {}, "xlsx": {}, "register": {},
}

func isStaticSegment(s string) bool {
	_, ok := staticSegments[s]
	return ok
}
