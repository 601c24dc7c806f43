package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and the
// request-economics pipeline (completions, tokens, cost, cache traffic).
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	completionsTotal *prometheus.CounterVec
	tokensBilled     prometheus.Counter
	costUSD          prometheus.Counter
	cacheRequests    *prometheus.CounterVec
	pricingFallbacks prometheus.Counter
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pitchlens",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchlens",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	completionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchlens",
		Subsystem: "llm",
		Name:      "completions_total",
		Help:      "Upstream completion calls by outcome.",
	}, []string{"outcome"})

	tokensBilled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlens",
		Subsystem: "llm",
		Name:      "tokens_billed_total",
		Help:      "Provider-reported tokens billed across all calls.",
	})

	costUSD := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlens",
		Subsystem: "llm",
		Name:      "cost_usd_total",
		Help:      "Cumulative estimated spend in USD.",
	})

	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchlens",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Response cache lookups by result (hit or miss).",
	}, []string{"result"})

	pricingFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlens",
		Subsystem: "llm",
		Name:      "pricing_fallbacks_total",
		Help:      "Completions priced with the default model's rates because the model was unknown.",
	})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, completionsTotal,
		tokensBilled, costUSD, cacheRequests, pricingFallbacks,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:         registry,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		completionsTotal: completionsTotal,
		tokensBilled:     tokensBilled,
		costUSD:          costUSD,
		cacheRequests:    cacheRequests,
		pricingFallbacks: pricingFallbacks,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObserveCompletion records a finished upstream call. Outcome is one of
// "success", "rate_limited", "transient_error", "permanent_error".
func (c *Collector) ObserveCompletion(outcome string, tokens int, costUSD float64) {
	c.completionsTotal.WithLabelValues(outcome).Inc()
	if tokens > 0 {
		c.tokensBilled.Add(float64(tokens))
	}
	if costUSD > 0 {
		c.costUSD.Add(costUSD)
	}
}

// ObserveCacheLookup records a cache hit or miss.
func (c *Collector) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheRequests.WithLabelValues(result).Inc()
}

// ObservePricingFallback records a completion billed at default-model rates.
func (c *Collector) ObservePricingFallback() {
	c.pricingFallbacks.Inc()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
