// internal/service/detect/validator.go

package detect

import (
	"sort"

	"creatorpulse/internal/domain/content"
)

// Validator enforces cross-source corroboration: a topic backed by a
// single source is treated as noise and dropped before scoring.
type Validator struct {
	minSources int
}

// NewValidator creates a validator requiring minSources distinct sources.
// Values below 2 are raised to 2; the whole point is corroboration.
func NewValidator(minSources int) *Validator {
	if minSources < 2 {
		minSources = 2
	}
	return &Validator{minSources: minSources}
}

// Validate returns the sorted distinct source tags among the matching
// records and whether the topic meets the corroboration floor.
func (v *Validator) Validate(matched []content.Record) ([]string, bool) {
	seen := make(map[string]bool)
	for _, rec := range matched {
		if rec.Source != "" {
			seen[rec.Source] = true
		}
	}

	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	return sources, len(sources) >= v.minSources
}
