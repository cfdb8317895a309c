// internal/service/ingest/service.go

package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"creatorpulse/internal/domain/content"
	"creatorpulse/internal/service/detect"
)

// RecordStore persists full content records
type RecordStore interface {
	SaveRecord(ctx context.Context, rec content.Record) error
}

// Service is the ingestion path: it persists incoming content records and
// writes the trimmed historical snapshots the velocity calculation reads.
// Snapshot keywords come from the same tokenizer the topic extractor uses,
// keeping mention matching symmetric.
type Service struct {
	records   RecordStore
	history   content.HistoryStore
	tokenizer *detect.Tokenizer
}

// NewService creates a new ingestion service
func NewService(records RecordStore, history content.HistoryStore, tokenizer *detect.Tokenizer) *Service {
	return &Service{
		records:   records,
		history:   history,
		tokenizer: tokenizer,
	}
}

// Ingest stores the given records for a tenant and returns how many were
// accepted. Records without an ID get one assigned; records without a
// timestamp are stamped with the current time.
func (s *Service) Ingest(ctx context.Context, tenantID string, records []content.Record) (int, error) {
	stored := 0
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.BodyText) == "" {
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}
		rec.TenantID = tenantID

		if err := s.records.SaveRecord(ctx, rec); err != nil {
			return stored, fmt.Errorf("saving record %s: %w", rec.ID, err)
		}

		snap := content.Snapshot{
			Title:     rec.Title,
			Source:    rec.Source,
			CreatedAt: rec.CreatedAt,
			Keywords:  s.tokenizer.Keywords(rec.Title + " " + rec.BodyText),
		}
		if err := s.history.RecordSnapshot(ctx, tenantID, snap); err != nil {
			return stored, fmt.Errorf("recording snapshot for %s: %w", rec.ID, err)
		}

		stored++
	}
	return stored, nil
}
