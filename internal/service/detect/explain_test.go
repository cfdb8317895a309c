package detect

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"creatorpulse/internal/domain/content"
	"creatorpulse/internal/domain/trend"
)

func TestExplainRisingTrend(t *testing.T) {
	e := NewExplainer(5)

	text := e.Explain(trend.Trend{
		Topic:        "ai agents",
		MentionCount: 8,
		Velocity:     150,
		SourceCount:  3,
	})

	assert.Equal(t, true, strings.Contains(text, `"ai agents"`))
	assert.Equal(t, true, strings.Contains(text, "8 mentions"))
	assert.Equal(t, true, strings.Contains(text, "3 sources"))
	assert.Equal(t, true, strings.Contains(text, "up 150%"))
}

func TestExplainCoolingTrend(t *testing.T) {
	e := NewExplainer(5)

	text := e.Explain(trend.Trend{Topic: "nft", MentionCount: 4, Velocity: -25, SourceCount: 2})

	assert.Equal(t, true, strings.Contains(text, "down 25%"))
}

func TestExplainFlatTrend(t *testing.T) {
	e := NewExplainer(5)

	text := e.Explain(trend.Trend{Topic: "golang", MentionCount: 6, Velocity: 0, SourceCount: 2})

	assert.Equal(t, true, strings.Contains(text, "holding steady"))
}

func TestSelectEvidencePrefersMostRecent(t *testing.T) {
	e := NewExplainer(5)

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	records := make([]content.Record, 7)
	for i := range records {
		records[i] = content.Record{
			ID:        fmt.Sprintf("rec-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}

	ids := e.SelectEvidence(records)

	assert.Equal(t, []string{"rec-6", "rec-5", "rec-4", "rec-3", "rec-2"}, ids)
}

func TestSelectEvidenceHandlesShortLists(t *testing.T) {
	e := NewExplainer(5)

	ids := e.SelectEvidence([]content.Record{{ID: "only"}})

	assert.Equal(t, []string{"only"}, ids)
}
