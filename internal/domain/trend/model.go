// internal/domain/trend/model.go

package trend

import (
	"time"
)

// ConfidenceLevel is a coarse display bucket derived from the strength score
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Rank orders confidence levels for minimum-confidence filtering.
// Unknown values rank lowest.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// TopicCluster is an intermediate grouping of content records that share
// a theme. Produced per detection run, never persisted.
type TopicCluster struct {
	Keywords        []string
	MemberRecordIDs []string
}

// Trend represents a detected trending topic for a tenant
type Trend struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	Topic             string          `json:"topic"`
	Keywords          []string        `json:"keywords"`
	StrengthScore     float64         `json:"strength_score"`
	MentionCount      int             `json:"mention_count"`
	Velocity          float64         `json:"velocity"`
	Sources           []string        `json:"sources"`
	SourceCount       int             `json:"source_count"`
	KeyContentItemIDs []string        `json:"key_content_item_ids"`
	ConfidenceLevel   ConfidenceLevel `json:"confidence_level"`
	Explanation       string          `json:"explanation"`
	FirstSeen         time.Time       `json:"first_seen"`
	DetectedAt        time.Time       `json:"detected_at"`
	IsActive          bool            `json:"is_active"`
}

// DetectionParams are the caller-supplied knobs for a detection run
type DetectionParams struct {
	WindowDays    int
	MaxTrends     int
	MinConfidence ConfidenceLevel
	Sources       []string
}

// RunSummary reports what a detection run looked at and kept
type RunSummary struct {
	RecordsAnalyzed       int    `json:"records_analyzed"`
	TopicsBeforeFiltering int    `json:"topics_found_before_filtering"`
	TopicsAfterValidation int    `json:"topics_after_validation"`
	PersistWarning        string `json:"persist_warning,omitempty"`
}

// Summary aggregates a tenant's past trend activity
type Summary struct {
	TrendCount  int       `json:"trend_count"`
	AvgScore    float64   `json:"avg_score"`
	TopSources  []string  `json:"top_sources"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}
