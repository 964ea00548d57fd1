package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks outbound calls to the RFQ API.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_api_requests_total",
			Help: "Total number of RFQ API requests made (by endpoint, method and outcome).",
		},
		[]string{"endpoint", "method", "status"}, // status = "ok" | "error"
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfq_api_request_duration_seconds",
			Help:    "Duration of RFQ API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_events_published_total",
			Help: "Events published to the event bus.",
		},
		[]string{"backend", "result"},
	)

	DiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_watcher_discovered_total",
			Help: "RFQs seen for the first time by the watcher.",
		},
		[]string{"feed"},
	)

	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in the token cache.",
		},
		[]string{"result"}, // hit | miss
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Count of adapter-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	LastPollTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adapter_last_poll_timestamp",
			Help: "Timestamp (unix seconds) of the last successful watcher poll.",
		},
		[]string{"component"},
	)
)

// ObserveRequest records one RFQ API call.
func ObserveRequest(endpoint, method string, start time.Time, err error) {
	RequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	RequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

func IncEvent(backend, result string) {
	EventsPublished.WithLabelValues(backend, result).Inc()
}

func IncDiscovered(feed string) {
	DiscoveredTotal.WithLabelValues(feed).Inc()
}

func IncCacheAccess(hit bool) {
	if hit {
		SecretsCacheHits.WithLabelValues("hit").Inc()
		return
	}
	SecretsCacheHits.WithLabelValues("miss").Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastPoll(component string, t time.Time) {
	LastPollTimestamp.WithLabelValues(component).Set(float64(t.Unix()))
}
