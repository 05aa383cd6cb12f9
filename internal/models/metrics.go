package models

import "time"

// SystemMetrics is the JSON snapshot served by the metrics endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64          `json:"cacheHitRatio"`
	CacheHits                uint64           `json:"cacheHits"`
	CacheMisses              uint64           `json:"cacheMisses"`
	RequestsTotal            uint64           `json:"requestsTotal"`
	AverageRequestDurationMs float64          `json:"averageRequestDurationMs"`
	BulkTransitions          map[Stage]uint64 `json:"bulkTransitions"`
	ExportJobsFinished       uint64           `json:"exportJobsFinished"`
	ExportJobsFailed         uint64           `json:"exportJobsFailed"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generatedAt"`
}
