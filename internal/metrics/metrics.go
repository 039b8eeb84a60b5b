// Package metrics exposes Prometheus collectors for the agent service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	runsTotal                  *prometheus.CounterVec
	unitsTotal                 *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	pagesScrapedTotal          *prometheus.CounterVec
	contactsExtractedTotal     *prometheus.CounterVec
	providerRequestsTotal      *prometheus.CounterVec
	providerDurationSeconds    *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "route"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hq_agent_runs_total",
				Help: "Total number of finished agent runs, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		unitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hq_agent_units_total",
				Help: "Total number of run inputs processed, labeled by kind and result.",
			},
			[]string{"kind", "result"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "hq_active_workers",
				Help: "Number of workers currently processing a run.",
			},
		)

		pagesScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hq_pages_scraped_total",
				Help: "Total number of pages scraped, labeled by site and source.",
			},
			[]string{"site", "source"},
		)

		contactsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hq_contacts_extracted_total",
				Help: "Total number of contacts returned by lookups, labeled by source.",
			},
			[]string{"source"},
		)

		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hq_provider_requests_total",
				Help: "Total number of third-party API calls, labeled by provider and code.",
			},
			[]string{"provider", "code"},
		)

		providerDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hq_provider_request_duration_seconds",
				Help:    "Histogram of third-party API latencies, labeled by provider.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hq_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"key"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRun increments the finished-run counter.
func ObserveRun(kind, status string) {
	Init()
	runsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveUnit records one processed run input.
func ObserveUnit(kind string, err error) {
	Init()
	result := "success"
	if err != nil {
		result = "failure"
	}
	unitsTotal.WithLabelValues(kind, result).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObservePage records a scraped page.
func ObservePage(pageURL, source string) {
	Init()
	pagesScrapedTotal.WithLabelValues(SanitizeSite(pageURL), source).Inc()
}

// ObserveContacts adds the number of contacts produced by a lookup.
func ObserveContacts(source string, n int) {
	Init()
	if n > 0 {
		contactsExtractedTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveProviderCall records a third-party API call. code is 0 for transport errors.
func ObserveProviderCall(provider string, code int, duration time.Duration) {
	Init()
	providerRequestsTotal.WithLabelValues(provider, strconv.Itoa(code)).Inc()
	providerDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(key string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(key).Observe(duration.Seconds())
}
