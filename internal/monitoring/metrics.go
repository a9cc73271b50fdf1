// internal/monitoring/metrics.go
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus instruments for the scraping and
// metadata pipelines. A nil *Metrics is valid and records nothing, so
// tests and library embedders can skip instrumentation entirely.
type Metrics struct {
	scrapesTotal    *prometheus.CounterVec
	scrapeDuration  *prometheus.HistogramVec
	scrapeRetries   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	providerSearches *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
}

// New registers the metric set with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scrapesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracklift",
			Name:      "scrapes_total",
			Help:      "Scrape calls by method and outcome.",
		}, []string{"method", "outcome"}),
		scrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tracklift",
			Name:      "scrape_duration_seconds",
			Help:      "Wall time of scrape calls by method.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"method"}),
		scrapeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracklift",
			Name:      "scrape_retries_total",
			Help:      "Retry attempts across all scrape calls.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracklift",
			Name:      "cache_hits_total",
			Help:      "Scrape results served from cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracklift",
			Name:      "cache_misses_total",
			Help:      "Scrape cache lookups that missed.",
		}),
		providerSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracklift",
			Name:      "provider_searches_total",
			Help:      "Metadata provider searches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tracklift",
			Name:      "provider_search_duration_seconds",
			Help:      "Wall time of metadata provider searches.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"}),
	}

	reg.MustRegister(
		m.scrapesTotal, m.scrapeDuration, m.scrapeRetries,
		m.cacheHits, m.cacheMisses,
		m.providerSearches, m.providerDuration,
	)
	return m
}

// ScrapeCompleted records one finished scrape call.
func (m *Metrics) ScrapeCompleted(method string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.scrapesTotal.WithLabelValues(method, outcome).Inc()
	m.scrapeDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RetryRecorded counts one retry attempt.
func (m *Metrics) RetryRecorded() {
	if m == nil {
		return
	}
	m.scrapeRetries.Inc()
}

// CacheHit counts a scrape served from cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss counts a cache lookup that missed.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// ProviderSearch records one metadata provider search.
func (m *Metrics) ProviderSearch(provider string, hit bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "hit"
	if !hit {
		outcome = "miss"
	}
	m.providerSearches.WithLabelValues(provider, outcome).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
