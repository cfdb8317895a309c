// internal/service/detect/velocity.go

package detect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"creatorpulse/internal/domain/content"
)

// VelocityConfig contains tunables for velocity measurement
type VelocityConfig struct {
	// MaxVelocity caps the percentage change so a brand-new topic
	// (zero historical mentions) stays finite.
	MaxVelocity float64
}

// DefaultVelocityConfig returns the default velocity tuning
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{MaxVelocity: 500}
}

// VelocityCalculator measures how fast a topic's mention count is changing
// between the current window and the immediately preceding one.
type VelocityCalculator struct {
	config  VelocityConfig
	history content.HistoryStore
}

// NewVelocityCalculator creates a new velocity calculator
func NewVelocityCalculator(history content.HistoryStore, config VelocityConfig) *VelocityCalculator {
	return &VelocityCalculator{
		config:  config,
		history: history,
	}
}

// Measure returns the percentage change of currentMentions against the
// mention count found in the prior window of equal length, plus the prior
// count itself. A topic with no prior mentions gets the capped maximum.
// When sources is non-empty the prior count only includes snapshots from
// those sources, keeping the baseline symmetric with a filtered run.
func (v *VelocityCalculator) Measure(
	ctx context.Context,
	tenantID string,
	topicKeywords []string,
	windowStart, windowEnd time.Time,
	currentMentions int,
	sources []string,
) (float64, int, error) {
	priorStart := windowStart.Add(-windowEnd.Sub(windowStart))

	snapshots, err := v.history.ListSnapshots(ctx, tenantID, priorStart, windowStart)
	if err != nil {
		return 0, 0, fmt.Errorf("listing historical snapshots: %w", err)
	}

	allowed := make(map[string]bool, len(sources))
	for _, s := range sources {
		allowed[s] = true
	}

	historical := 0
	for _, snap := range snapshots {
		if len(allowed) > 0 && !allowed[snap.Source] {
			continue
		}
		if keywordsOverlap(snap.Keywords, topicKeywords) {
			historical++
		}
	}

	if historical == 0 {
		if currentMentions > 0 {
			return v.config.MaxVelocity, 0, nil
		}
		return 0, 0, nil
	}

	velocity := float64(currentMentions-historical) / float64(historical) * 100
	if velocity > v.config.MaxVelocity {
		velocity = v.config.MaxVelocity
	}
	return velocity, historical, nil
}

// keywordsOverlap reports whether any keyword appears in both sets. Topic
// keywords may be n-grams; a record matches when any of its unigram
// keywords appears inside an n-gram term as a whole word.
func keywordsOverlap(recordKeywords, topicKeywords []string) bool {
	set := make(map[string]bool, len(recordKeywords))
	for _, k := range recordKeywords {
		set[k] = true
	}
	return overlapsSet(set, topicKeywords)
}

func overlapsSet(recordKeywords map[string]bool, topicKeywords []string) bool {
	for _, topicTerm := range topicKeywords {
		if recordKeywords[topicTerm] {
			return true
		}
		words := strings.Fields(topicTerm)
		if len(words) < 2 {
			continue
		}
		for _, word := range words {
			if recordKeywords[word] {
				return true
			}
		}
	}
	return false
}
