package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the marketplace collectors on a private registry so tests
// can build as many as they like. A nil *Metrics records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	ListingQueries  *prometheus.CounterVec
	QueryLatency    prometheus.Histogram
	Engagement      *prometheus.CounterVec
	FeaturedChanges *prometheus.CounterVec
	SuggestionCache *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ListingQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_queries_total",
			Help:      "Listing store queries by outcome.",
		}, []string{"result"}),
		QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listing_query_seconds",
			Help:      "Latency of listing store queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		Engagement: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_increments_total",
			Help:      "View and search counter increments applied.",
		}, []string{"kind"}),
		FeaturedChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "featured_changes_total",
			Help:      "Featured flag flips by direction and source.",
		}, []string{"direction", "source"}),
		SuggestionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_cache_total",
			Help:      "Autocomplete cache lookups by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.ListingQueries,
		m.QueryLatency,
		m.Engagement,
		m.FeaturedChanges,
		m.SuggestionCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry on a fiber route.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) ObserveQuery(start time.Time, err error) {
	if m == nil {
		return
	}
	m.QueryLatency.Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ListingQueries.WithLabelValues(result).Inc()
}

func (m *Metrics) Engaged(kind string) {
	if m == nil {
		return
	}
	m.Engagement.WithLabelValues(kind).Inc()
}

func (m *Metrics) Featured(source string, promoted, demoted int) {
	if m == nil {
		return
	}
	m.FeaturedChanges.WithLabelValues("promote", source).Add(float64(promoted))
	m.FeaturedChanges.WithLabelValues("demote", source).Add(float64(demoted))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SuggestionCache.WithLabelValues("hit").Inc()
		return
	}
	m.SuggestionCache.WithLabelValues("miss").Inc()
}
