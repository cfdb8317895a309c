// internal/domain/trend/detector.go

package trend

import (
	"context"
	"time"
)

// Detector defines the interface for the trend detection engine
type Detector interface {
	// Start begins background maintenance (stale-trend deactivation)
	Start(ctx context.Context) error

	// Stop gracefully stops background maintenance
	Stop(ctx context.Context) error

	// DetectTrends runs the full detection pipeline for a tenant and
	// persists the surviving trends
	DetectTrends(ctx context.Context, tenantID string, params DetectionParams) ([]Trend, RunSummary, error)

	// GetActiveTrends returns the tenant's active trends, score-descending
	GetActiveTrends(ctx context.Context, tenantID string, limit int) ([]Trend, error)

	// GetTrendHistory returns past detections within the last daysBack days
	GetTrendHistory(ctx context.Context, tenantID string, daysBack int) ([]Trend, error)

	// GetTrendSummary returns aggregate stats over the last daysBack days
	GetTrendSummary(ctx context.Context, tenantID string, daysBack int) (*Summary, error)

	// GetTrendByID returns a specific trend by ID
	GetTrendByID(ctx context.Context, id string) (*Trend, error)

	// DeleteTrend removes a trend by ID
	DeleteTrend(ctx context.Context, id string) error
}

// Store defines persistence for trends
type Store interface {
	SaveTrend(ctx context.Context, t Trend) error
	GetTrend(ctx context.Context, id string) (*Trend, error)
	FindActiveTrends(ctx context.Context, tenantID string, limit int) ([]Trend, error)
	FindTrendsSince(ctx context.Context, tenantID string, since time.Time) ([]Trend, error)
	DeleteTrend(ctx context.Context, id string) error
	DeactivateTrendsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
