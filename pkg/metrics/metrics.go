package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	StoreRequestsTotal   *prometheus.CounterVec
	StoreRequestDuration *prometheus.HistogramVec
	StoreBreakerState    *prometheus.GaugeVec

	NotesLoaded     prometheus.Gauge
	NoteLoadsTotal  *prometheus.CounterVec
	NoteLoadSeconds prometheus.Histogram
	CommitsTotal    *prometheus.CounterVec

	JournalEntriesTotal  prometheus.Counter
	JournalBufferDropped prometheus.Counter
}

// NewCollector registers every metric with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	serviceName = strings.ReplaceAll(serviceName, "-", "_")
	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		StoreRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Calls to the remote visit store by operation and outcome.",
		}, []string{"operation", "outcome"}),

		StoreRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Remote visit store latency distribution.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0, 60.0},
		}, []string{"operation"}),

		StoreBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "store",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"breaker"}),

		NotesLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "notes",
			Name:      "loaded",
			Help:      "Number of notes in the current collection.",
		}),

		NoteLoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notes",
			Name:      "loads_total",
			Help:      "Full collection loads by outcome.",
		}, []string{"outcome"}),

		NoteLoadSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "notes",
			Name:      "load_duration_seconds",
			Help:      "Time to fetch, normalize and sort every visit.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),

		CommitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notes",
			Name:      "commits_total",
			Help:      "Draft commits by result.",
		}, []string{"result"}),

		JournalEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "journal",
			Name:      "entries_total",
			Help:      "Total edit journal entries written.",
		}),

		JournalBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "journal",
			Name:      "buffer_dropped_total",
			Help:      "Journal entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
