// internal/adapter/storage/trend_store.go

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"creatorpulse/internal/domain/trend"
)

// TrendStore implements trend.Store on Postgres
type TrendStore struct {
	db *pgxpool.Pool
}

// NewTrendStore creates a new trend store
func NewTrendStore(db *pgxpool.Pool) *TrendStore {
	return &TrendStore{
		db: db,
	}
}

// EnsureSchema creates the trends table if it does not exist
func (s *TrendStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trends (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			keywords TEXT[] NOT NULL,
			strength_score DOUBLE PRECISION NOT NULL,
			mention_count INTEGER NOT NULL,
			velocity DOUBLE PRECISION NOT NULL,
			sources TEXT[] NOT NULL,
			source_count INTEGER NOT NULL,
			key_content_item_ids TEXT[] NOT NULL,
			confidence_level TEXT NOT NULL,
			explanation TEXT NOT NULL,
			first_seen TIMESTAMPTZ NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE INDEX IF NOT EXISTS trends_tenant_detected_idx
			ON trends (tenant_id, detected_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("error creating trends schema: %w", err)
	}
	return nil
}

// SaveTrend saves a trend to storage. Last write wins per row; there is
// no cross-trend transactional invariant to protect.
func (s *TrendStore) SaveTrend(ctx context.Context, t trend.Trend) error {
	query := `
		INSERT INTO trends (
			id, tenant_id, topic, keywords, strength_score, mention_count,
			velocity, sources, source_count, key_content_item_ids,
			confidence_level, explanation, first_seen, detected_at, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO UPDATE
		SET
			topic = $3,
			keywords = $4,
			strength_score = $5,
			mention_count = $6,
			velocity = $7,
			sources = $8,
			source_count = $9,
			key_content_item_ids = $10,
			confidence_level = $11,
			explanation = $12,
			detected_at = $14,
			is_active = $15
	`

	if t.FirstSeen.IsZero() {
		t.FirstSeen = time.Now()
	}
	if t.DetectedAt.IsZero() {
		t.DetectedAt = time.Now()
	}

	_, err := s.db.Exec(
		ctx,
		query,
		t.ID,
		t.TenantID,
		t.Topic,
		t.Keywords,
		t.StrengthScore,
		t.MentionCount,
		t.Velocity,
		t.Sources,
		t.SourceCount,
		t.KeyContentItemIDs,
		string(t.ConfidenceLevel),
		t.Explanation,
		t.FirstSeen,
		t.DetectedAt,
		t.IsActive,
	)
	if err != nil {
		return fmt.Errorf("error saving trend: %w", err)
	}

	return nil
}

const trendColumns = `
	id, tenant_id, topic, keywords, strength_score, mention_count,
	velocity, sources, source_count, key_content_item_ids,
	confidence_level, explanation, first_seen, detected_at, is_active
`

// GetTrend retrieves a trend by ID
func (s *TrendStore) GetTrend(ctx context.Context, id string) (*trend.Trend, error) {
	query := `SELECT ` + trendColumns + ` FROM trends WHERE id = $1`

	t, err := scanTrend(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, trend.ErrNotFound
		}
		return nil, fmt.Errorf("error querying trend: %w", err)
	}
	return t, nil
}

// FindActiveTrends returns a tenant's active trends, score-descending
func (s *TrendStore) FindActiveTrends(ctx context.Context, tenantID string, limit int) ([]trend.Trend, error) {
	query := `
		SELECT ` + trendColumns + `
		FROM trends
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY strength_score DESC, source_count DESC, mention_count DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying active trends: %w", err)
	}
	defer rows.Close()

	return collectTrends(rows)
}

// FindTrendsSince returns all of a tenant's trends detected at or after
// the given time, most recent first.
func (s *TrendStore) FindTrendsSince(ctx context.Context, tenantID string, since time.Time) ([]trend.Trend, error) {
	query := `
		SELECT ` + trendColumns + `
		FROM trends
		WHERE tenant_id = $1 AND detected_at >= $2
		ORDER BY detected_at DESC, strength_score DESC
	`

	rows, err := s.db.Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("error querying trend history: %w", err)
	}
	defer rows.Close()

	return collectTrends(rows)
}

// DeleteTrend removes a trend by ID
func (s *TrendStore) DeleteTrend(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trends WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting trend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trend.ErrNotFound
	}
	return nil
}

// DeactivateTrendsBefore marks trends detected before cutoff as inactive
// and returns how many rows changed.
func (s *TrendStore) DeactivateTrendsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE trends SET is_active = FALSE
		WHERE is_active = TRUE AND detected_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deactivating trends: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTrend(row pgx.Row) (*trend.Trend, error) {
	var t trend.Trend
	var confidence string

	err := row.Scan(
		&t.ID,
		&t.TenantID,
		&t.Topic,
		&t.Keywords,
		&t.StrengthScore,
		&t.MentionCount,
		&t.Velocity,
		&t.Sources,
		&t.SourceCount,
		&t.KeyContentItemIDs,
		&confidence,
		&t.Explanation,
		&t.FirstSeen,
		&t.DetectedAt,
		&t.IsActive,
	)
	if err != nil {
		return nil, err
	}

	t.ConfidenceLevel = trend.ConfidenceLevel(confidence)
	return &t, nil
}

func collectTrends(rows pgx.Rows) ([]trend.Trend, error) {
	var trends []trend.Trend
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning trend: %w", err)
		}
		trends = append(trends, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trends: %w", err)
	}
	return trends, nil
}
