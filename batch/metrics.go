package batch

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes batch progress on a private prometheus registry.
type Metrics struct {
	reg     *prometheus.Registry
	files   *prometheus.CounterVec
	seconds prometheus.Histogram
	bytes   prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{reg: reg}
	m.files = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cogify_files_total",
		Help: "Processed files by final status.",
	}, []string{"status"})
	m.seconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cogify_file_processing_seconds",
		Help:    "Wall time spent converting one file.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	m.bytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cogify_source_bytes_total",
		Help: "Source bytes of successfully converted files.",
	})
	reg.MustRegister(m.files, m.seconds, m.bytes)
	return m
}

// Handler returns the /metrics router for this registry.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	return r
}

// Serve exposes the metrics endpoint on addr until the listener fails.
// Intended to run in its own goroutine for the lifetime of the batch.
func (m *Metrics) Serve(addr string) error {
	return http.ListenAndServe(addr, m.Handler())
}
