package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/notevault-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	fanOut          *prometheus.HistogramVec
	fanOutFailures  *prometheus.CounterVec
	purged          *prometheus.CounterVec
	snapshots       *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	transitionCount      uint64
	transitionFailures   uint64
	purgedCount          uint64
	snapshotCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notevault_lifecycle_transitions_total",
		Help: "Lifecycle transitions by entity, action and outcome",
	}, []string{"entity", "action", "outcome"})

	fanOut := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notevault_cascade_fanout_items",
		Help:    "Number of items touched by a collection cascade",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"mode", "action"})

	fanOutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notevault_cascade_item_failures_total",
		Help: "Item writes of a cascade that failed",
	}, []string{"mode", "action"})

	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notevault_reaper_purged_total",
		Help: "Documents purged by the retention reaper",
	}, []string{"entity"})

	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notevault_view_snapshots_total",
		Help: "Merged view snapshots emitted to observers",
	}, []string{"view"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, fanOut, fanOutFailures, purged, snapshots, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitions:     transitions,
		fanOut:          fanOut,
		fanOutFailures:  fanOutFailures,
		purged:          purged,
		snapshots:       snapshots,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordTransition counts one lifecycle or lock transition.
func (m *MetricsService) RecordTransition(entity models.EntityKind, action string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
		atomic.AddUint64(&m.transitionFailures, 1)
	}
	m.transitions.WithLabelValues(string(entity), action, outcome).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// ObserveFanOut records the size of a cascade and how many item writes failed.
func (m *MetricsService) ObserveFanOut(mode string, action models.Action, items, failed int) {
	if m == nil {
		return
	}
	m.fanOut.WithLabelValues(mode, string(action)).Observe(float64(items))
	if failed > 0 {
		m.fanOutFailures.WithLabelValues(mode, string(action)).Add(float64(failed))
	}
}

// RecordPurged counts documents removed by the reaper.
func (m *MetricsService) RecordPurged(entity models.EntityKind, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.purged.WithLabelValues(string(entity)).Add(float64(count))
	atomic.AddUint64(&m.purgedCount, uint64(count))
}

// RecordSnapshot counts one merged view emission.
func (m *MetricsService) RecordSnapshot(view models.ViewName) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(string(view)).Inc()
	atomic.AddUint64(&m.snapshotCount, 1)
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.EngineMetrics {
	if m == nil {
		return models.EngineMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.EngineMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		TransitionsTotal:         atomic.LoadUint64(&m.transitionCount),
		TransitionFailures:       atomic.LoadUint64(&m.transitionFailures),
		PurgedTotal:              atomic.LoadUint64(&m.purgedCount),
		SnapshotsTotal:           atomic.LoadUint64(&m.snapshotCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
