// internal/adapter/storage/history_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"creatorpulse/internal/domain/content"
)

const historyKeyPrefix = "creatorpulse:history:"

// HistoryStore keeps a rolling window of content snapshots per tenant in
// a Redis sorted set scored by creation time. Entries older than the
// retention window are trimmed on write, and the key itself expires when
// a tenant stops ingesting.
type HistoryStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewHistoryStore creates a history store with the given retention window
func NewHistoryStore(rdb *redis.Client, retention time.Duration) *HistoryStore {
	return &HistoryStore{
		rdb:       rdb,
		retention: retention,
	}
}

// RecordSnapshot appends a snapshot for a tenant and trims expired entries
func (s *HistoryStore) RecordSnapshot(ctx context.Context, tenantID string, snap content.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error marshaling snapshot: %w", err)
	}

	key := historyKey(tenantID)
	if err := s.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(snap.CreatedAt.Unix()),
		Member: string(data),
	}).Err(); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}

	cutoff := time.Now().Add(-s.retention).Unix()
	if err := s.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return fmt.Errorf("error trimming snapshots: %w", err)
	}

	if err := s.rdb.Expire(ctx, key, s.retention).Err(); err != nil {
		return fmt.Errorf("error setting snapshot expiry: %w", err)
	}

	return nil
}

// ListSnapshots returns a tenant's snapshots within [start, end)
func (s *HistoryStore) ListSnapshots(ctx context.Context, tenantID string, start, end time.Time) ([]content.Snapshot, error) {
	members, err := s.rdb.ZRangeByScore(ctx, historyKey(tenantID), &redis.ZRangeBy{
		Min: strconv.FormatInt(start.Unix(), 10),
		Max: "(" + strconv.FormatInt(end.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading snapshots: %w", err)
	}

	snapshots := make([]content.Snapshot, 0, len(members))
	for _, m := range members {
		var snap content.Snapshot
		if err := json.Unmarshal([]byte(m), &snap); err != nil {
			return nil, fmt.Errorf("error unmarshaling snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func historyKey(tenantID string) string {
	return historyKeyPrefix + tenantID
}
