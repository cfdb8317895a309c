package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"creatorpulse/internal/domain/content"
)

type fakeHistory struct {
	snapshots []content.Snapshot
	err       error

	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeHistory) RecordSnapshot(ctx context.Context, tenantID string, snap content.Snapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return f.err
}

func (f *fakeHistory) ListSnapshots(ctx context.Context, tenantID string, start, end time.Time) ([]content.Snapshot, error) {
	f.gotStart, f.gotEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	var out []content.Snapshot
	for _, s := range f.snapshots {
		if !s.CreatedAt.Before(start) && s.CreatedAt.Before(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func snapshotAt(ts time.Time, keywords ...string) content.Snapshot {
	return content.Snapshot{Title: "t", Source: "feedA", CreatedAt: ts, Keywords: keywords}
}

var (
	windowEnd   = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	windowStart = windowEnd.AddDate(0, 0, -7)
)

func TestVelocityBrandNewTopicIsCapped(t *testing.T) {
	calc := NewVelocityCalculator(&fakeHistory{}, DefaultVelocityConfig())

	velocity, historical, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 5, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, 500.0, velocity)
	assert.Equal(t, 0, historical)
}

func TestVelocityZeroEverywhere(t *testing.T) {
	calc := NewVelocityCalculator(&fakeHistory{}, DefaultVelocityConfig())

	velocity, historical, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 0, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, 0.0, velocity)
	assert.Equal(t, 0, historical)
}

func TestVelocityComputesPercentageChange(t *testing.T) {
	prior := windowStart.Add(-24 * time.Hour)
	history := &fakeHistory{snapshots: []content.Snapshot{
		snapshotAt(prior, "ai", "agents"),
		snapshotAt(prior.Add(time.Hour), "ai"),
		snapshotAt(prior.Add(2*time.Hour), "unrelated"),
	}}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	velocity, historical, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 5, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, historical)
	assert.Equal(t, 150.0, velocity)
}

func TestVelocityCanBeNegative(t *testing.T) {
	prior := windowStart.Add(-24 * time.Hour)
	history := &fakeHistory{snapshots: []content.Snapshot{
		snapshotAt(prior, "ai"),
		snapshotAt(prior.Add(time.Hour), "ai"),
		snapshotAt(prior.Add(2*time.Hour), "ai"),
		snapshotAt(prior.Add(3*time.Hour), "ai"),
	}}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	velocity, historical, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 2, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, 4, historical)
	assert.Equal(t, -50.0, velocity)
}

func TestVelocityCapAppliesToExplosiveGrowth(t *testing.T) {
	prior := windowStart.Add(-24 * time.Hour)
	history := &fakeHistory{snapshots: []content.Snapshot{snapshotAt(prior, "ai")}}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	velocity, _, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 100, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, 500.0, velocity)
}

func TestVelocityQueriesPriorWindowOfEqualLength(t *testing.T) {
	history := &fakeHistory{}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	_, _, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 1, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, windowStart.AddDate(0, 0, -7), history.gotStart)
	assert.Equal(t, windowStart, history.gotEnd)
}

func TestVelocityMatchesNGramTopicTerms(t *testing.T) {
	prior := windowStart.Add(-24 * time.Hour)
	history := &fakeHistory{snapshots: []content.Snapshot{
		snapshotAt(prior, "ai", "agents", "coding"),
	}}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	// Snapshot keywords are unigrams; the topic term is an n-gram.
	_, historical, err := calc.Measure(context.Background(), "t1", []string{"ai agents"}, windowStart, windowEnd, 2, nil)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, historical)
}

func TestVelocitySourceFilterAppliesToBaseline(t *testing.T) {
	prior := windowStart.Add(-24 * time.Hour)
	history := &fakeHistory{snapshots: []content.Snapshot{
		{Title: "t", Source: "feedA", CreatedAt: prior, Keywords: []string{"ai"}},
		{Title: "t", Source: "feedA", CreatedAt: prior.Add(time.Hour), Keywords: []string{"ai"}},
		{Title: "t", Source: "feedB", CreatedAt: prior.Add(2 * time.Hour), Keywords: []string{"ai"}},
	}}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	// A feedA-only run must not count the feedB snapshot in its baseline.
	velocity, historical, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 4, []string{"feedA"})

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, historical)
	assert.Equal(t, 100.0, velocity)
}

func TestVelocitySurfacesHistoryErrors(t *testing.T) {
	history := &fakeHistory{err: errors.New("redis down")}
	calc := NewVelocityCalculator(history, DefaultVelocityConfig())

	_, _, err := calc.Measure(context.Background(), "t1", []string{"ai"}, windowStart, windowEnd, 1, nil)

	if err == nil {
		t.Fatal("expected an error")
	}
}
