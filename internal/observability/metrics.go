package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	formulaFailuresTotal  prometheus.Counter
	wipesTotal            prometheus.Counter
	definitionCacheTotal  *prometheus.CounterVec
	sseClientsActiveGauge prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multigraders_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "multigraders_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multigraders_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multigraders_submissions_total",
			Help: "Grade submissions by record kind and result.",
		}, []string{"kind", "result"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multigraders_notifications_total",
			Help: "Notifications delivered by type.",
		}, []string{"type"})

		formulaFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multigraders_formula_failures_total",
			Help: "Formula evaluations that produced no grade.",
		})

		wipesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multigraders_wipes_total",
			Help: "Administrative wipes of grading items.",
		})

		definitionCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multigraders_definition_cache_total",
			Help: "Definition cache lookups by result.",
		}, []string{"result"})

		sseClientsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "multigraders_sse_clients_active",
			Help: "Connected notification stream clients.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsTotal,
			notificationsTotal,
			formulaFailuresTotal,
			wipesTotal,
			definitionCacheTotal,
			sseClientsActiveGauge,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionsTotal counts grade submissions.
func SubmissionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// NotificationsPublishedTotal counts delivered notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// FormulaFailuresTotal counts failed formula evaluations.
func FormulaFailuresTotal() prometheus.Counter {
	RegisterMetrics()
	return formulaFailuresTotal
}

// WipesTotal counts administrative wipes.
func WipesTotal() prometheus.Counter {
	RegisterMetrics()
	return wipesTotal
}

// DefinitionCache counts definition cache hits and misses.
func DefinitionCache() *prometheus.CounterVec {
	RegisterMetrics()
	return definitionCacheTotal
}

// SSEClientsActive tracks connected notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActiveGauge
}

// MetricsHandler serves the scrape endpoint, including the grading collectors.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
