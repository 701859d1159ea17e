package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate per route. Watch for: sudden drops (site down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p95 increases on dashboard routes.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests being served. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream weather fetches by type (metar/taf/custom) and outcome.
	// Watch for: error ratio climbing, breaker about to trip.
	WeatherFetchesTotal *prometheus.CounterVec

	// Upstream weather fetch latency. Watch for: p95 > 2s (upstream degradation).
	WeatherFetchDuration *prometheus.HistogramVec

	// Webcam captures by mode (pull/push) and outcome.
	WebcamCapturesTotal *prometheus.CounterVec

	// Total webcam frame bytes stored. rate() gives ingest bandwidth.
	WebcamBytesTotal prometheus.Counter

	// Rate limit denials (429s). Watch for: abuse or overly tight limits.
	RateLimitDeniedTotal prometheus.Counter

	// Currently connected websocket clients.
	WebsocketClients prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherFetchesTotal",
			Help: "Total number of upstream weather fetches",
		},
		[]string{"type", "status"},
	)
	WeatherFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherFetchDurationSeconds",
			Help:    "Upstream weather fetch latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WebcamCapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webcamCapturesTotal",
			Help: "Total number of webcam frame captures",
		},
		[]string{"mode", "status"},
	)
	WebcamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webcamBytesTotal",
			Help: "Total webcam frame bytes stored",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocketClientsConnected",
			Help: "Number of currently connected websocket clients",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherFetchesTotal, WeatherFetchDuration,
		WebcamCapturesTotal, WebcamBytesTotal,
		RateLimitDeniedTotal,
		WebsocketClients,
	)
}

// MetricsHandler returns an http.Handler that serves application and
// runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
