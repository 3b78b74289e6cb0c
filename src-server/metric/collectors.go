package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendex_api_request_duration_seconds",
		Help:    "Latency of requests sent to the AttendEx API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "resource", "status"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendex_query_cache_lookups_total",
		Help: "Query cache lookups by result (hit, miss, shared)",
	}, []string{"result"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendex_query_cache_invalidations_total",
		Help: "Number of query cache invalidations issued after mutations",
	})

	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendex_live_poll_cycles_total",
		Help: "Live attendance poll cycles by outcome",
	}, []string{"outcome"})

	SessionStoreRead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "attendex_session_store_read_microsec",
		Help: "The latency of an empty session store read in microseconds",
	})

	ArrivalNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendex_arrival_notifications_total",
		Help: "Number of arrival notifications posted to Discord",
	})
)

// ResourceLabel collapses an API path into a bounded label value:
// /api/v1/events/42/attendees -> events/:id/attendees
func ResourceLabel(path string) string {
	const prefix = "/api/v1/"
	if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
		path = path[len(prefix):]
	}
	out := make([]byte, 0, len(path))
	segment := make([]byte, 0, 16)
	flush := func() {
		if len(segment) == 0 {
			return
		}
		if looksLikeID(segment) {
			segment = append(segment[:0], ":id"...)
		}
		if len(out) > 0 {
			out = append(out, '/')
		}
		out = append(out, segment...)
		segment = segment[:0]
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '?' {
			break
		}
		if path[i] == '/' {
			flush()
			continue
		}
		segment = append(segment, path[i])
	}
	flush()
	return string(out)
}

func looksLikeID(segment []byte) bool {
	digits := 0
	for _, c := range segment {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	return digits > 0 && (digits == len(segment) || len(segment) >= 16)
}
