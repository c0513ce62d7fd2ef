package models

import "time"

// MetricsSnapshot aggregates process counters for status endpoints.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DocumentsIngested        uint64    `json:"documents_ingested"`
	DocumentsRejected        uint64    `json:"documents_rejected"`
	RecordsAccepted          uint64    `json:"records_accepted"`
	Queries                  uint64    `json:"queries"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
