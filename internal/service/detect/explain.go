// internal/service/detect/explain.go

package detect

import (
	"fmt"
	"sort"

	"creatorpulse/internal/domain/content"
	"creatorpulse/internal/domain/trend"
)

// Explainer produces the human-readable justification and evidence links
// for a detected trend.
type Explainer struct {
	maxEvidence int
}

// NewExplainer creates an explainer keeping at most maxEvidence record IDs
func NewExplainer(maxEvidence int) *Explainer {
	if maxEvidence <= 0 {
		maxEvidence = 5
	}
	return &Explainer{maxEvidence: maxEvidence}
}

// Explain renders a short templated sentence covering mention volume,
// velocity direction and source diversity.
func (e *Explainer) Explain(t trend.Trend) string {
	var movement string
	switch {
	case t.Velocity > 0:
		movement = fmt.Sprintf("up %.0f%% vs the prior period", t.Velocity)
	case t.Velocity < 0:
		movement = fmt.Sprintf("down %.0f%% vs the prior period", -t.Velocity)
	default:
		movement = "holding steady vs the prior period"
	}

	noun := "sources"
	if t.SourceCount == 1 {
		noun = "source"
	}

	return fmt.Sprintf("%q is trending with %d mentions across %d %s, %s.",
		t.Topic, t.MentionCount, t.SourceCount, noun, movement)
}

// SelectEvidence returns the IDs of the most recent matching records,
// newest first, capped at the configured maximum.
func (e *Explainer) SelectEvidence(matched []content.Record) []string {
	recs := make([]content.Record, len(matched))
	copy(recs, matched)
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})

	if len(recs) > e.maxEvidence {
		recs = recs[:e.maxEvidence]
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
