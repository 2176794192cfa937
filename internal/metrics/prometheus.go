package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "researcher_run_duration_seconds",
			Help:    "Research run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	ResearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researcher_runs_total",
			Help: "Total research runs by outcome",
		},
		[]string{"status"},
	)

	FallbackTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researcher_fallback_triggered_total",
			Help: "Runs that fell back to template extraction",
		},
		[]string{"reason"},
	)

	SourcesCollected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "researcher_sources_collected",
			Help:    "Deduplicated sources collected per run",
			Buckets: []float64{0, 5, 10, 20, 30, 50, 100},
		},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "researcher_search_duration_seconds",
			Help:    "Per-query search call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	SearchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researcher_search_errors_total",
			Help: "Search queries skipped due to provider errors",
		},
		[]string{"provider"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researcher_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researcher_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researcher_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(ResearchDuration)
	prometheus.MustRegister(ResearchTotal)
	prometheus.MustRegister(FallbackTriggered)
	prometheus.MustRegister(SourcesCollected)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchErrors)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
