// internal/domain/content/model.go

package content

import (
	"context"
	"time"
)

// Record is a single piece of aggregated content owned by the
// content-source collaborator. Immutable once produced.
type Record struct {
	ID        string
	TenantID  string
	Title     string
	BodyText  string
	Source    string
	CreatedAt time.Time
}

// Snapshot is a trimmed copy of a Record kept in the historical store
// so mention counts can be computed without re-reading full content.
type Snapshot struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Keywords  []string  `json:"extracted_keywords"`
}

// Source is the read-only query interface the detection engine uses to
// pull a tenant's recent content.
type Source interface {
	// ListRecords returns records for a tenant within [start, end),
	// optionally restricted to the given source tags.
	ListRecords(ctx context.Context, tenantID string, start, end time.Time, sources []string) ([]Record, error)
}

// HistoryStore keeps a rolling window of snapshots per tenant. Written
// by the ingestion path, read by the velocity calculation.
type HistoryStore interface {
	// RecordSnapshot appends a snapshot for a tenant.
	RecordSnapshot(ctx context.Context, tenantID string, snap Snapshot) error

	// ListSnapshots returns snapshots for a tenant within [start, end).
	ListSnapshots(ctx context.Context, tenantID string, start, end time.Time) ([]Snapshot, error)
}
