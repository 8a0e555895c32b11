package models

import "time"

// APIUsage reports consumption of one upstream quota.
type APIUsage struct {
	API        string    `json:"api"`
	Window     string    `json:"window"`
	Used       int64     `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int64     `json:"remaining"`
	Percentage float64   `json:"percentage"`
	Configured bool      `json:"configured"`
	ResetsAt   time.Time `json:"resets_at"`
	Warning    string    `json:"warning,omitempty"`
}

// UsageResponse is returned by the usage endpoint.
type UsageResponse struct {
	Provider string     `json:"provider"`
	APIs     []APIUsage `json:"apis"`
}

// GenerationStats summarizes the prediction log over a time range.
type GenerationStats struct {
	Days          int               `json:"days"`
	Total         uint64            `json:"total"`
	BySource      map[string]uint64 `json:"by_source"`
	ByOutcome     map[string]uint64 `json:"by_outcome"`
	FallbackRatio float64           `json:"fallback_ratio"`
	AvgLatencyMs  float64           `json:"avg_latency_ms"`
}

// PredictionLogEntry is one row appended to the analytics store.
type PredictionLogEntry struct {
	MatchID        int64
	League         string
	Outcome        string
	PredictedScore string
	HomeWinProb    float64
	DrawProb       float64
	AwayWinProb    float64
	Confidence     float64
	Source         string
	LatencyMs      uint32
}
