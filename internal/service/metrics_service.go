package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	documents       *prometheus.CounterVec
	recordsAccepted prometheus.Counter
	rowsSkipped     prometheus.Counter
	sheetsSkipped   prometheus.Counter
	queries         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	documentsIngested    uint64
	documentsRejected    uint64
	recordsCount         uint64
	queryCount           uint64
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

	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_documents_total",
		Help: "Schedule documents submitted for ingestion by outcome",
	}, []string{"outcome"})

	recordsAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_records_accepted_total",
		Help: "Schedule records added to the store",
	})

	rowsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_rows_skipped_total",
		Help: "Spreadsheet rows skipped because a value could not be parsed",
	})

	sheetsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_sheets_skipped_total",
		Help: "Spreadsheet sheets skipped during ingestion",
	})

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_queries_total",
		Help: "Teacher schedule lookups by status",
	}, []string{"status"})

	queryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_query_duration_seconds",
		Help:    "Duration of teacher schedule lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, documents, recordsAccepted, rowsSkipped, sheetsSkipped,
		queries, queryDuration, cacheLatency, cacheWrite, cacheHitRatio, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		documents:       documents,
		recordsAccepted: recordsAccepted,
		rowsSkipped:     rowsSkipped,
		sheetsSkipped:   sheetsSkipped,
		queries:         queries,
		queryDuration:   queryDuration,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
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

// ObserveIngestion records the outcome of one document ingestion.
func (m *MetricsService) ObserveIngestion(result *IngestResult, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.documents.WithLabelValues(errorOutcome(err)).Inc()
		atomic.AddUint64(&m.documentsRejected, 1)
		return
	}
	m.documents.WithLabelValues("success").Inc()
	atomic.AddUint64(&m.documentsIngested, 1)
	if result == nil {
		return
	}
	m.recordsAccepted.Add(float64(result.NewRecords))
	m.rowsSkipped.Add(float64(result.RowsSkipped))
	for _, sheet := range result.Sheets {
		if sheet.Skipped {
			m.sheetsSkipped.Inc()
		}
	}
	atomic.AddUint64(&m.recordsCount, uint64(result.NewRecords))
}

// ObserveQuery records a lookup outcome and its latency.
func (m *MetricsService) ObserveQuery(status QueryStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(string(status)).Inc()
	m.queryDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.queryCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DocumentsIngested:        atomic.LoadUint64(&m.documentsIngested),
		DocumentsRejected:        atomic.LoadUint64(&m.documentsRejected),
		RecordsAccepted:          atomic.LoadUint64(&m.recordsCount),
		Queries:                  atomic.LoadUint64(&m.queryCount),
		CacheHitRatio:            cacheRatio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func errorOutcome(err error) string {
	code := appErrors.FromError(err).Code
	if code == "" {
		return "error"
	}
	return strings.ToLower(code)
}
