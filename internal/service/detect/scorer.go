// internal/service/detect/scorer.go

package detect

import (
	"sort"

	"creatorpulse/internal/domain/trend"
)

// ScoringConfig contains the weights, normalization divisors and
// confidence thresholds for trend scoring
type ScoringConfig struct {
	MentionWeight  float64
	VelocityWeight float64
	SourceWeight   float64

	// Divisors map each raw dimension to roughly [0,1] at a plausible
	// maximum; each sub-term is clamped before weighting.
	MentionDivisor  float64
	VelocityDivisor float64
	SourceDivisor   float64

	HighThreshold   float64
	MediumThreshold float64
}

// DefaultScoringConfig returns the default scoring tuning
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MentionWeight:   0.3,
		VelocityWeight:  0.4,
		SourceWeight:    0.3,
		MentionDivisor:  20,
		VelocityDivisor: 100,
		SourceDivisor:   4,
		HighThreshold:   0.7,
		MediumThreshold: 0.4,
	}
}

// Scorer combines mention volume, velocity and source diversity into a
// single strength score and assigns confidence tiers.
type Scorer struct {
	config ScoringConfig
}

// NewScorer creates a new scorer
func NewScorer(config ScoringConfig) *Scorer {
	return &Scorer{config: config}
}

// Score computes the weighted strength score in [0,1]
func (s *Scorer) Score(mentionCount int, velocity float64, sourceCount int) float64 {
	mention := clamp01(float64(mentionCount) / s.config.MentionDivisor)
	vel := clamp01(velocity / s.config.VelocityDivisor)
	src := clamp01(float64(sourceCount) / s.config.SourceDivisor)

	return s.config.MentionWeight*mention +
		s.config.VelocityWeight*vel +
		s.config.SourceWeight*src
}

// Confidence maps a strength score to its display tier
func (s *Scorer) Confidence(score float64) trend.ConfidenceLevel {
	switch {
	case score >= s.config.HighThreshold:
		return trend.ConfidenceHigh
	case score >= s.config.MediumThreshold:
		return trend.ConfidenceMedium
	default:
		return trend.ConfidenceLow
	}
}

// Rank sorts trends by strength score descending. Exact ties fall back to
// source count, then mention count, so ordering is deterministic.
func (s *Scorer) Rank(trends []trend.Trend) {
	sort.SliceStable(trends, func(i, j int) bool {
		if trends[i].StrengthScore != trends[j].StrengthScore {
			return trends[i].StrengthScore > trends[j].StrengthScore
		}
		if trends[i].SourceCount != trends[j].SourceCount {
			return trends[i].SourceCount > trends[j].SourceCount
		}
		return trends[i].MentionCount > trends[j].MentionCount
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
