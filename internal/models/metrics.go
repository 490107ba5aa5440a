package models

import "time"

// EngineMetrics is a point-in-time summary of engine activity.
type EngineMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	TransitionsTotal         uint64    `json:"transitionsTotal"`
	TransitionFailures       uint64    `json:"transitionFailures"`
	PurgedTotal              uint64    `json:"purgedTotal"`
	SnapshotsTotal           uint64    `json:"snapshotsTotal"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
