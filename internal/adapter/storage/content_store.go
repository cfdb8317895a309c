// internal/adapter/storage/content_store.go

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"creatorpulse/internal/domain/content"
)

// ContentStore implements content.Source on Postgres. Records are written
// by the ingestion path and read by the detection engine.
type ContentStore struct {
	db *pgxpool.Pool
}

// NewContentStore creates a new content store
func NewContentStore(db *pgxpool.Pool) *ContentStore {
	return &ContentStore{
		db: db,
	}
}

// EnsureSchema creates the content_records table if it does not exist
func (s *ContentStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS content_records (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body_text TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS content_records_tenant_created_idx
			ON content_records (tenant_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("error creating content schema: %w", err)
	}
	return nil
}

// SaveRecord inserts a record, ignoring duplicates by ID
func (s *ContentStore) SaveRecord(ctx context.Context, rec content.Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO content_records (id, tenant_id, title, body_text, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.TenantID, rec.Title, rec.BodyText, rec.Source, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving content record: %w", err)
	}
	return nil
}

// ListRecords returns a tenant's records within [start, end), optionally
// restricted to the given source tags.
func (s *ContentStore) ListRecords(ctx context.Context, tenantID string, start, end time.Time, sources []string) ([]content.Record, error) {
	query := `
		SELECT id, tenant_id, title, body_text, source, created_at
		FROM content_records
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
	`
	args := []interface{}{tenantID, start, end}

	if len(sources) > 0 {
		query += ` AND source = ANY($4)`
		args = append(args, sources)
	}

	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying content records: %w", err)
	}
	defer rows.Close()

	var records []content.Record
	for rows.Next() {
		var rec content.Record
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Title, &rec.BodyText, &rec.Source, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning content record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content records: %w", err)
	}

	return records, nil
}
