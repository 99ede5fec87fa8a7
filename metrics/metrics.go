package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FetchMetrics records upstream calls and cache lookups per data source.
type FetchMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	lookups  *prometheus.CounterVec
}

// NewFetchMetrics registers the fetch metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewFetchMetrics(reg prometheus.Registerer) *FetchMetrics {
	if reg == nil {
		return &FetchMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spacedash",
		Name:      "upstream_requests_total",
		Help:      "Upstream API requests by source and outcome.",
	}, []string{"source", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spacedash",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of upstream API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spacedash",
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by source and result.",
	}, []string{"source", "result"})
	reg.MustRegister(requests, latency, lookups)
	return &FetchMetrics{requests: requests, latency: latency, lookups: lookups}
}

// ObserveUpstream records one upstream request.
func (m *FetchMetrics) ObserveUpstream(source string, d time.Duration, err error) {
	if m == nil || m.requests == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(normalizeLabel(source), outcome).Inc()
	m.latency.WithLabelValues(normalizeLabel(source)).Observe(d.Seconds())
}

func (m *FetchMetrics) IncCacheHit(source string) {
	m.incLookup(source, "hit")
}

func (m *FetchMetrics) IncCacheMiss(source string) {
	m.incLookup(source, "miss")
}

func (m *FetchMetrics) incLookup(source, result string) {
	if m == nil || m.lookups == nil {
		return
	}
	m.lookups.WithLabelValues(normalizeLabel(source), result).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
