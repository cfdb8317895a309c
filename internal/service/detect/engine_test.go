package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"creatorpulse/internal/domain/content"
	"creatorpulse/internal/domain/trend"
)

type fakeSource struct {
	records []content.Record
	err     error
	calls   int
}

func (f *fakeSource) ListRecords(ctx context.Context, tenantID string, start, end time.Time, sources []string) ([]content.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeTrendStore struct {
	mu          sync.Mutex
	saved       []trend.Trend
	active      []trend.Trend
	failSave    bool
	failAfter   int // fail saves once this many succeeded; 0 means never
	deactivated []time.Time
}

func (f *fakeTrendStore) SaveTrend(ctx context.Context, t trend.Trend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave || (f.failAfter > 0 && len(f.saved) >= f.failAfter) {
		return errors.New("db down")
	}
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeTrendStore) GetTrend(ctx context.Context, id string) (*trend.Trend, error) {
	for i := range f.saved {
		if f.saved[i].ID == id {
			return &f.saved[i], nil
		}
	}
	return nil, trend.ErrNotFound
}

func (f *fakeTrendStore) FindActiveTrends(ctx context.Context, tenantID string, limit int) ([]trend.Trend, error) {
	return f.active, nil
}

func (f *fakeTrendStore) FindTrendsSince(ctx context.Context, tenantID string, since time.Time) ([]trend.Trend, error) {
	var out []trend.Trend
	for _, t := range f.saved {
		if !t.DetectedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTrendStore) DeleteTrend(ctx context.Context, id string) error {
	for i := range f.saved {
		if f.saved[i].ID == id {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			return nil
		}
	}
	return trend.ErrNotFound
}

func (f *fakeTrendStore) DeactivateTrendsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, cutoff)
	return 1, nil
}

func (f *fakeTrendStore) deactivations() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.deactivated...)
}

func newTestEngine(t *testing.T, source content.Source, history content.HistoryStore, store trend.Store) *Engine {
	t.Helper()
	engine := NewEngine(
		source,
		NewExtractor(newTestTokenizer(t), testExtractorConfig()),
		NewVelocityCalculator(history, DefaultVelocityConfig()),
		NewValidator(2),
		NewScorer(DefaultScoringConfig()),
		NewExplainer(5),
		store,
		nil,
		DefaultEngineConfig(),
	)
	engine.now = func() time.Time { return windowEnd }
	return engine
}

func withSources(records []content.Record, sources ...string) []content.Record {
	for i := range records {
		records[i].Source = sources[i%len(sources)]
	}
	return records
}

func quantumRecords(n int, source string) []content.Record {
	titles := []string{
		"Quantum computing breakthrough announced",
		"Quantum computing reaches error correction milestone",
		"Banks pilot quantum computing workloads",
		"Quantum computing startups raise funding",
		"Quantum computing hardware race accelerates",
		"What quantum computing means for cryptography",
	}
	records := make([]content.Record, n)
	for i := 0; i < n; i++ {
		records[i] = content.Record{
			ID:        fmt.Sprintf("qc-%02d", i),
			Title:     titles[i%len(titles)],
			BodyText:  "qubits superposition hardware " + titles[i%len(titles)],
			Source:    source,
			CreatedAt: time.Date(2026, 8, 22, i, 0, 0, 0, time.UTC),
		}
	}
	return records
}

// Scenario: a multi-source topic with prior-week history becomes one
// high-confidence trend, while a single-source topic is filtered out.
func TestDetectTrendsCrossValidatedTopic(t *testing.T) {
	records := withSources(aiRecords(8, ""), "feedA", "feedB", "feedC")
	records = append(records, climateRecords(7, "feedD")...)

	prior := windowStart.Add(-48 * time.Hour)
	history := &fakeHistory{snapshots: []content.Snapshot{
		snapshotAt(prior, "ai", "agents"),
		snapshotAt(prior.Add(time.Hour), "ai"),
		snapshotAt(prior.Add(2*time.Hour), "agents"),
	}}
	store := &fakeTrendStore{}
	engine := newTestEngine(t, &fakeSource{records: records}, history, store)

	trends, summary, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})
	if err != nil {
		t.Fatalf("DetectTrends: %v", err)
	}

	assert.Equal(t, 15, summary.RecordsAnalyzed)
	assert.Equal(t, 1, summary.TopicsAfterValidation)
	assert.Equal(t, 1, len(trends))

	got := trends[0]
	assert.Equal(t, 8, got.MentionCount)
	assert.Equal(t, 3, got.SourceCount)
	assert.Equal(t, []string{"feedA", "feedB", "feedC"}, got.Sources)
	assert.Equal(t, trend.ConfidenceHigh, got.ConfidenceLevel)
	assert.Equal(t, true, got.Velocity > 100 && got.Velocity < 200)
	assert.Equal(t, true, got.StrengthScore > 0 && got.StrengthScore <= 1)
	assert.Equal(t, true, len(got.KeyContentItemIDs) > 0 && len(got.KeyContentItemIDs) <= 5)
	assert.Equal(t, true, got.Explanation != "")
	assert.Equal(t, windowEnd, got.DetectedAt)
	assert.Equal(t, true, got.IsActive)

	// Only cross-validated trends were persisted.
	assert.Equal(t, 1, len(store.saved))
	for _, saved := range store.saved {
		if saved.SourceCount < 2 {
			t.Fatalf("persisted trend with %d sources", saved.SourceCount)
		}
	}
}

// Scenario: all content from one source yields no trends at all.
func TestDetectTrendsSingleSourceCorpusYieldsNothing(t *testing.T) {
	store := &fakeTrendStore{}
	engine := newTestEngine(t, &fakeSource{records: aiRecords(10, "feedA")}, &fakeHistory{}, store)

	trends, summary, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})
	if err != nil {
		t.Fatalf("DetectTrends: %v", err)
	}

	assert.Equal(t, 0, len(trends))
	assert.Equal(t, 0, summary.TopicsAfterValidation)
	assert.Equal(t, 0, len(store.saved))
}

// Scenario: more valid topics than requested returns only the strongest.
func TestDetectTrendsHonorsMaxTrends(t *testing.T) {
	records := withSources(aiRecords(8, ""), "feedA", "feedB")
	records = append(records, withSources(climateRecords(6, ""), "feedC", "feedD")...)
	records = append(records, withSources(quantumRecords(6, ""), "feedE", "feedF")...)

	store := &fakeTrendStore{}
	engine := newTestEngine(t, &fakeSource{records: records}, &fakeHistory{}, store)

	trends, summary, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{MaxTrends: 2})
	if err != nil {
		t.Fatalf("DetectTrends: %v", err)
	}

	assert.Equal(t, 3, summary.TopicsAfterValidation)
	assert.Equal(t, 2, len(trends))
	assert.Equal(t, 8, trends[0].MentionCount)
	assert.Equal(t, true, trends[0].StrengthScore >= trends[1].StrengthScore)
	assert.Equal(t, 2, len(store.saved))
}

func TestDetectTrendsMinConfidenceFilter(t *testing.T) {
	// Two-source topics with capped velocity land in the medium tier.
	records := withSources(aiRecords(8, ""), "feedA", "feedB")
	records = append(records, withSources(climateRecords(6, ""), "feedC", "feedD")...)

	engine := newTestEngine(t, &fakeSource{records: records}, &fakeHistory{}, &fakeTrendStore{})

	trends, _, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{
		MinConfidence: trend.ConfidenceHigh,
	})
	if err != nil {
		t.Fatalf("DetectTrends: %v", err)
	}

	assert.Equal(t, 0, len(trends))
}

func TestDetectTrendsInsufficientData(t *testing.T) {
	source := &fakeSource{records: aiRecords(5, "feedA")}
	engine := newTestEngine(t, source, &fakeHistory{}, &fakeTrendStore{})

	_, summary, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})

	assert.Equal(t, true, errors.Is(err, trend.ErrInsufficientData))
	assert.Equal(t, 5, summary.RecordsAnalyzed)
}

func TestDetectTrendsSourceUnavailable(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	engine := newTestEngine(t, source, &fakeHistory{}, &fakeTrendStore{})

	_, _, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})

	assert.Equal(t, true, errors.Is(err, trend.ErrSourceUnavailable))
}

func TestDetectTrendsRejectsBadParamsBeforeWork(t *testing.T) {
	source := &fakeSource{}
	engine := newTestEngine(t, source, &fakeHistory{}, &fakeTrendStore{})

	cases := []trend.DetectionParams{
		{WindowDays: 31},
		{WindowDays: -1},
		{MaxTrends: 51},
		{MaxTrends: -2},
		{MinConfidence: "certain"},
	}
	for _, params := range cases {
		_, _, err := engine.DetectTrends(context.Background(), "t1", params)
		assert.Equal(t, true, errors.Is(err, trend.ErrInvalidParameters))
	}
	assert.Equal(t, 0, source.calls)
}

func TestDetectTrendsSurfacesPersistFailureWithResult(t *testing.T) {
	records := withSources(aiRecords(10, ""), "feedA", "feedB")
	store := &fakeTrendStore{failSave: true}
	engine := newTestEngine(t, &fakeSource{records: records}, &fakeHistory{}, store)

	trends, summary, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})

	var persistErr *trend.PersistenceError
	assert.Equal(t, true, errors.As(err, &persistErr))
	assert.Equal(t, true, len(persistErr.Trends) > 0)
	assert.Equal(t, true, len(trends) > 0)
	assert.Equal(t, true, summary.PersistWarning != "")
}

// A mid-run store failure must not leave already-persisted trends
// unannounced: everything saved before the failure is published, nothing
// after it is.
func TestDetectTrendsPublishesOnlyPersistedTrends(t *testing.T) {
	records := withSources(aiRecords(8, ""), "feedA", "feedB")
	records = append(records, withSources(climateRecords(6, ""), "feedC", "feedD")...)
	store := &fakeTrendStore{failAfter: 1}
	engine := newTestEngine(t, &fakeSource{records: records}, &fakeHistory{}, store)

	var handled []string
	engine.RegisterTrendHandler(func(tr trend.Trend) error {
		handled = append(handled, tr.Topic)
		return nil
	})

	trends, summary, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})

	var persistErr *trend.PersistenceError
	assert.Equal(t, true, errors.As(err, &persistErr))
	assert.Equal(t, 1, persistErr.Persisted)
	assert.Equal(t, 2, len(trends))
	assert.Equal(t, 1, len(store.saved))
	assert.Equal(t, []string{trends[0].Topic}, handled)
	assert.Equal(t, true, strings.Contains(summary.PersistWarning, "persisted 1 of 2"))
}

func TestMaintenanceDeactivatesStaleTrends(t *testing.T) {
	store := &fakeTrendStore{}
	engine := newTestEngine(t, &fakeSource{}, &fakeHistory{}, store)
	engine.config.MaintenanceInterval = 5 * time.Millisecond

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(store.deactivations()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("maintenance loop never deactivated anything")
		}
		time.Sleep(time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := engine.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	assert.Equal(t, windowEnd.Add(-engine.config.StaleAfter), store.deactivations()[0])
}

func TestDetectTrendsRepeatedRunsAgree(t *testing.T) {
	records := withSources(aiRecords(8, ""), "feedA", "feedB", "feedC")
	records = append(records, climateRecords(7, "feedD")...)
	engine := newTestEngine(t, &fakeSource{records: records}, &fakeHistory{}, &fakeTrendStore{})

	first, _, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, _, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Keywords, second[i].Keywords)
		assert.Equal(t, first[i].MentionCount, second[i].MentionCount)
		assert.Equal(t, first[i].SourceCount, second[i].SourceCount)
	}
}

func TestDetectTrendsCarriesFirstSeenForward(t *testing.T) {
	records := withSources(aiRecords(8, ""), "feedA", "feedB", "feedC")
	records = append(records, climateRecords(7, "feedD")...)
	store := &fakeTrendStore{}
	engine := newTestEngine(t, &fakeSource{records: records}, &fakeHistory{}, store)

	first, _, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	earlier := windowEnd.AddDate(0, 0, -3)
	store.active = []trend.Trend{{Topic: first[0].Topic, FirstSeen: earlier}}

	second, _, err := engine.DetectTrends(context.Background(), "t1", trend.DetectionParams{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	assert.Equal(t, earlier, second[0].FirstSeen)
}

// Three detections on different days all show up in history, newest first
// per the store contract, and each stays valid on its own.
func TestTrendHistoryAndSummary(t *testing.T) {
	store := &fakeTrendStore{}
	for day := 1; day <= 3; day++ {
		store.saved = append(store.saved, trend.Trend{
			ID:            fmt.Sprintf("trend-%d", day),
			TenantID:      "t1",
			Topic:         "ai agents",
			StrengthScore: 0.4 + float64(day)*0.1,
			SourceCount:   2,
			Sources:       []string{"feedA", "feedB"},
			DetectedAt:    windowEnd.AddDate(0, 0, -day),
		})
	}
	// Outside the window; must not appear.
	store.saved = append(store.saved, trend.Trend{
		ID:         "trend-old",
		TenantID:   "t1",
		DetectedAt: windowEnd.AddDate(0, 0, -45),
	})

	engine := newTestEngine(t, &fakeSource{}, &fakeHistory{}, store)

	history, err := engine.GetTrendHistory(context.Background(), "t1", 30)
	if err != nil {
		t.Fatalf("GetTrendHistory: %v", err)
	}
	assert.Equal(t, 3, len(history))
	for _, h := range history {
		assert.Equal(t, true, h.SourceCount >= 2)
	}

	summary, err := engine.GetTrendSummary(context.Background(), "t1", 30)
	if err != nil {
		t.Fatalf("GetTrendSummary: %v", err)
	}
	assert.Equal(t, 3, summary.TrendCount)
	assert.Equal(t, true, summary.AvgScore > 0.59 && summary.AvgScore < 0.61)
	assert.Equal(t, []string{"feedA", "feedB"}, summary.TopSources)
}

func TestHistoryBoundsValidated(t *testing.T) {
	engine := newTestEngine(t, &fakeSource{}, &fakeHistory{}, &fakeTrendStore{})

	_, err := engine.GetTrendHistory(context.Background(), "t1", 91)
	assert.Equal(t, true, errors.Is(err, trend.ErrInvalidParameters))

	_, err = engine.GetTrendSummary(context.Background(), "t1", -1)
	assert.Equal(t, true, errors.Is(err, trend.ErrInvalidParameters))
}

func TestDeleteTrendNotFound(t *testing.T) {
	engine := newTestEngine(t, &fakeSource{}, &fakeHistory{}, &fakeTrendStore{})

	err := engine.DeleteTrend(context.Background(), "missing")

	assert.Equal(t, true, errors.Is(err, trend.ErrNotFound))
}
