// Package metrics exports Prometheus instrumentation for the resolver
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors the resolver updates.
type Metrics struct {
	ResolutionsTotal *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	TierLatency      *prometheus.HistogramVec
	RateLimited      prometheus.Gauge
}

// New creates and registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playtime",
			Name:      "resolutions_total",
			Help:      "Completed resolutions by source tier and outcome.",
		}, []string{"source", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime",
			Name:      "cache_hits_total",
			Help:      "Cache hits observed by the resolver.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime",
			Name:      "cache_misses_total",
			Help:      "Cache misses observed by the resolver.",
		}),
		TierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "playtime",
			Name:      "tier_latency_seconds",
			Help:      "Latency of each retrieval tier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),
		RateLimited: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "playtime",
			Name:      "api_rate_limited",
			Help:      "1 while the API client is inside a rate-limit window.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ResolutionsTotal, m.CacheHits, m.CacheMisses, m.TierLatency, m.RateLimited)
	}
	return m
}
