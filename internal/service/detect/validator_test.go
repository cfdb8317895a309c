package detect

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"creatorpulse/internal/domain/content"
)

func recordsFromSources(sources ...string) []content.Record {
	records := make([]content.Record, len(sources))
	for i, s := range sources {
		records[i] = content.Record{ID: string(rune('a' + i)), Source: s}
	}
	return records
}

func TestValidatorRejectsSingleSource(t *testing.T) {
	v := NewValidator(2)

	sources, ok := v.Validate(recordsFromSources("feedA", "feedA", "feedA"))

	assert.Equal(t, false, ok)
	assert.Equal(t, []string{"feedA"}, sources)
}

func TestValidatorAcceptsTwoSources(t *testing.T) {
	v := NewValidator(2)

	sources, ok := v.Validate(recordsFromSources("feedB", "feedA", "feedB"))

	assert.Equal(t, true, ok)
	assert.Equal(t, []string{"feedA", "feedB"}, sources)
}

func TestValidatorIgnoresEmptySourceTags(t *testing.T) {
	v := NewValidator(2)

	sources, ok := v.Validate(recordsFromSources("feedA", "", "feedA"))

	assert.Equal(t, false, ok)
	assert.Equal(t, []string{"feedA"}, sources)
}

func TestValidatorFloorIsAlwaysAtLeastTwo(t *testing.T) {
	v := NewValidator(0)

	_, ok := v.Validate(recordsFromSources("feedA"))

	assert.Equal(t, false, ok)
}
