// internal/service/detect/engine.go

package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"creatorpulse/internal/domain/content"
	"creatorpulse/internal/domain/trend"
)

// Run phases, used for logging and failure messages
const (
	phaseExtracting = "extracting"
	phaseScoring    = "scoring"
	phasePersisting = "persisting"
)

// EngineConfig contains configuration for the detection engine
type EngineConfig struct {
	DefaultWindowDays   int
	MaxWindowDays       int
	DefaultMaxTrends    int
	MaxTrendsLimit      int
	MaxHistoryDays      int
	StaleAfter          time.Duration
	MaintenanceInterval time.Duration
	EventsTopic         string
}

// DefaultEngineConfig returns the default engine tuning
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultWindowDays:   7,
		MaxWindowDays:       30,
		DefaultMaxTrends:    5,
		MaxTrendsLimit:      50,
		MaxHistoryDays:      90,
		StaleAfter:          7 * 24 * time.Hour,
		MaintenanceInterval: time.Hour,
		EventsTopic:         "trend",
	}
}

// Engine implements the trend.Detector interface. It orchestrates one
// detection run per call: extract topics, measure velocity, validate
// source diversity, score, explain, persist. Nothing is written until the
// persisting phase, so an abandoned run leaves no partial state.
type Engine struct {
	source    content.Source
	extractor *Extractor
	velocity  *VelocityCalculator
	validator *Validator
	scorer    *Scorer
	explainer *Explainer
	store     trend.Store
	eventBus  *nats.Conn
	config    EngineConfig

	handlers []func(trend.Trend) error
	mu       sync.RWMutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	now func() time.Time
}

// NewEngine creates a new detection engine
func NewEngine(
	source content.Source,
	extractor *Extractor,
	velocity *VelocityCalculator,
	validator *Validator,
	scorer *Scorer,
	explainer *Explainer,
	store trend.Store,
	eventBus *nats.Conn,
	config EngineConfig,
) *Engine {
	return &Engine{
		source:    source,
		extractor: extractor,
		velocity:  velocity,
		validator: validator,
		scorer:    scorer,
		explainer: explainer,
		store:     store,
		eventBus:  eventBus,
		config:    config,
		now:       time.Now,
	}
}

// Start launches the background maintenance loop that deactivates trends
// older than the configured staleness window.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.maintenanceLoop(ctx)

	return nil
}

// Stop gracefully stops background maintenance
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterTrendHandler registers a callback invoked for each newly
// persisted trend.
func (e *Engine) RegisterTrendHandler(handler func(trend.Trend) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// DetectTrends runs the full detection pipeline for a tenant
func (e *Engine) DetectTrends(ctx context.Context, tenantID string, params trend.DetectionParams) ([]trend.Trend, trend.RunSummary, error) {
	var summary trend.RunSummary

	params, err := e.normalizeParams(params)
	if err != nil {
		return nil, summary, err
	}

	now := e.now()
	windowStart := now.AddDate(0, 0, -params.WindowDays)

	records, err := e.source.ListRecords(ctx, tenantID, windowStart, now, params.Sources)
	if err != nil {
		return nil, summary, fmt.Errorf("%w: %v", trend.ErrSourceUnavailable, err)
	}
	summary.RecordsAnalyzed = len(records)

	clusters, err := e.extractor.Extract(records)
	if err != nil {
		if err == trend.ErrInsufficientData {
			return nil, summary, err
		}
		return nil, summary, fmt.Errorf("%s: %w", phaseExtracting, err)
	}
	summary.TopicsBeforeFiltering = len(clusters)
	if len(clusters) == 0 {
		// Too homogeneous to cluster. A valid empty result, not a failure.
		return []trend.Trend{}, summary, nil
	}

	recordKeywords := make(map[string]map[string]bool, len(records))
	byID := make(map[string]content.Record, len(records))
	tokenizer := e.extractor.tokenizer
	for _, rec := range records {
		set := make(map[string]bool)
		for _, kw := range tokenizer.Keywords(rec.Title + " " + rec.BodyText) {
			set[kw] = true
		}
		recordKeywords[rec.ID] = set
		byID[rec.ID] = rec
	}

	firstSeen := e.firstSeenByTopic(ctx, tenantID)

	trends := make([]trend.Trend, 0, len(clusters))
	for _, cluster := range clusters {
		var matched []content.Record
		for _, rec := range records {
			if overlapsSet(recordKeywords[rec.ID], cluster.Keywords) {
				matched = append(matched, rec)
			}
		}
		if len(matched) == 0 {
			continue
		}

		sources, ok := e.validator.Validate(matched)
		if !ok {
			continue
		}

		velocity, _, err := e.velocity.Measure(ctx, tenantID, cluster.Keywords, windowStart, now, len(matched), params.Sources)
		if err != nil {
			return nil, summary, fmt.Errorf("%s: %w", phaseScoring, err)
		}

		score := e.scorer.Score(len(matched), velocity, len(sources))

		t := trend.Trend{
			ID:                uuid.New().String(),
			TenantID:          tenantID,
			Topic:             cluster.Keywords[0],
			Keywords:          cluster.Keywords,
			StrengthScore:     score,
			MentionCount:      len(matched),
			Velocity:          velocity,
			Sources:           sources,
			SourceCount:       len(sources),
			KeyContentItemIDs: e.explainer.SelectEvidence(matched),
			ConfidenceLevel:   e.scorer.Confidence(score),
			FirstSeen:         now,
			DetectedAt:        now,
			IsActive:          true,
		}
		if seen, ok := firstSeen[t.Topic]; ok {
			t.FirstSeen = seen
		}
		trends = append(trends, t)
	}
	summary.TopicsAfterValidation = len(trends)

	if params.MinConfidence != "" {
		floor := params.MinConfidence.Rank()
		kept := trends[:0]
		for _, t := range trends {
			if t.ConfidenceLevel.Rank() >= floor {
				kept = append(kept, t)
			}
		}
		trends = kept
	}

	e.scorer.Rank(trends)
	if len(trends) > params.MaxTrends {
		trends = trends[:params.MaxTrends]
	}
	for i := range trends {
		trends[i].Explanation = e.explainer.Explain(trends[i])
	}

	// Publish each trend as soon as its save lands, so a mid-run store
	// failure never leaves a persisted trend unannounced.
	for i := range trends {
		if err := e.store.SaveTrend(ctx, trends[i]); err != nil {
			// Recomputation is expensive; hand the computed result back
			// with the failure attached instead of dropping it.
			summary.PersistWarning = fmt.Sprintf("%s: persisted %d of %d trends: %v",
				phasePersisting, i, len(trends), err)
			return trends, summary, &trend.PersistenceError{Err: err, Trends: trends, Persisted: i}
		}
		e.publishTrendEvent(trends[i])
		e.callHandlers(trends[i])
	}
	e.publishRunEvent(tenantID, summary)

	return trends, summary, nil
}

// GetActiveTrends returns the tenant's active trends, score-descending
func (e *Engine) GetActiveTrends(ctx context.Context, tenantID string, limit int) ([]trend.Trend, error) {
	if limit <= 0 {
		limit = e.config.DefaultMaxTrends
	}
	if limit > e.config.MaxTrendsLimit {
		limit = e.config.MaxTrendsLimit
	}
	return e.store.FindActiveTrends(ctx, tenantID, limit)
}

// GetTrendHistory returns past detections within the last daysBack days
func (e *Engine) GetTrendHistory(ctx context.Context, tenantID string, daysBack int) ([]trend.Trend, error) {
	daysBack, err := e.boundDays(daysBack)
	if err != nil {
		return nil, err
	}
	return e.store.FindTrendsSince(ctx, tenantID, e.now().AddDate(0, 0, -daysBack))
}

// GetTrendSummary aggregates the tenant's detections over daysBack days
func (e *Engine) GetTrendSummary(ctx context.Context, tenantID string, daysBack int) (*trend.Summary, error) {
	daysBack, err := e.boundDays(daysBack)
	if err != nil {
		return nil, err
	}

	now := e.now()
	since := now.AddDate(0, 0, -daysBack)
	trends, err := e.store.FindTrendsSince(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	summary := &trend.Summary{
		TrendCount:  len(trends),
		PeriodStart: since,
		PeriodEnd:   now,
	}

	sourceCounts := make(map[string]int)
	total := 0.0
	for _, t := range trends {
		total += t.StrengthScore
		for _, s := range t.Sources {
			sourceCounts[s]++
		}
	}
	if len(trends) > 0 {
		summary.AvgScore = total / float64(len(trends))
	}

	type sourceFreq struct {
		source string
		count  int
	}
	freqs := make([]sourceFreq, 0, len(sourceCounts))
	for s, c := range sourceCounts {
		freqs = append(freqs, sourceFreq{source: s, count: c})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].count != freqs[j].count {
			return freqs[i].count > freqs[j].count
		}
		return freqs[i].source < freqs[j].source
	})
	if len(freqs) > 5 {
		freqs = freqs[:5]
	}
	for _, f := range freqs {
		summary.TopSources = append(summary.TopSources, f.source)
	}

	return summary, nil
}

// GetTrendByID returns a specific trend by ID
func (e *Engine) GetTrendByID(ctx context.Context, id string) (*trend.Trend, error) {
	return e.store.GetTrend(ctx, id)
}

// DeleteTrend removes a trend by ID
func (e *Engine) DeleteTrend(ctx context.Context, id string) error {
	return e.store.DeleteTrend(ctx, id)
}

// normalizeParams applies defaults and rejects out-of-range values before
// any work is done.
func (e *Engine) normalizeParams(params trend.DetectionParams) (trend.DetectionParams, error) {
	if params.WindowDays == 0 {
		params.WindowDays = e.config.DefaultWindowDays
	}
	if params.WindowDays < 1 || params.WindowDays > e.config.MaxWindowDays {
		return params, fmt.Errorf("%w: window_days must be between 1 and %d", trend.ErrInvalidParameters, e.config.MaxWindowDays)
	}

	if params.MaxTrends == 0 {
		params.MaxTrends = e.config.DefaultMaxTrends
	}
	if params.MaxTrends < 1 || params.MaxTrends > e.config.MaxTrendsLimit {
		return params, fmt.Errorf("%w: max_trends must be between 1 and %d", trend.ErrInvalidParameters, e.config.MaxTrendsLimit)
	}

	if params.MinConfidence != "" && params.MinConfidence.Rank() == 0 {
		return params, fmt.Errorf("%w: unknown confidence level %q", trend.ErrInvalidParameters, params.MinConfidence)
	}

	return params, nil
}

func (e *Engine) boundDays(daysBack int) (int, error) {
	if daysBack == 0 {
		daysBack = e.config.MaxHistoryDays
	}
	if daysBack < 1 || daysBack > e.config.MaxHistoryDays {
		return 0, fmt.Errorf("%w: days_back must be between 1 and %d", trend.ErrInvalidParameters, e.config.MaxHistoryDays)
	}
	return daysBack, nil
}

// firstSeenByTopic carries FirstSeen forward from the tenant's currently
// active trends so a re-detected topic keeps its original sighting time.
func (e *Engine) firstSeenByTopic(ctx context.Context, tenantID string) map[string]time.Time {
	active, err := e.store.FindActiveTrends(ctx, tenantID, e.config.MaxTrendsLimit)
	if err != nil {
		log.Printf("Error loading active trends for %s: %v", tenantID, err)
		return nil
	}
	seen := make(map[string]time.Time, len(active))
	for _, t := range active {
		if existing, ok := seen[t.Topic]; !ok || t.FirstSeen.Before(existing) {
			seen[t.Topic] = t.FirstSeen
		}
	}
	return seen
}

// maintenanceLoop periodically deactivates stale trends
func (e *Engine) maintenanceLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := e.now().Add(-e.config.StaleAfter)
			n, err := e.store.DeactivateTrendsBefore(ctx, cutoff)
			if err != nil {
				log.Printf("Error deactivating stale trends: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Deactivated %d stale trends", n)
			}
		}
	}
}

// publishTrendEvent publishes a trend detected event
func (e *Engine) publishTrendEvent(t trend.Trend) {
	if e.eventBus == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		log.Printf("Error marshaling trend event: %v", err)
		return
	}
	subject := fmt.Sprintf("%s.detected.%s", e.config.EventsTopic, t.TenantID)
	if err := e.eventBus.Publish(subject, data); err != nil {
		log.Printf("Error publishing trend event: %v", err)
	}
}

// publishRunEvent publishes a run completed event with the summary
func (e *Engine) publishRunEvent(tenantID string, summary trend.RunSummary) {
	if e.eventBus == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Error marshaling run event: %v", err)
		return
	}
	subject := fmt.Sprintf("%s.runs.%s", e.config.EventsTopic, tenantID)
	if err := e.eventBus.Publish(subject, data); err != nil {
		log.Printf("Error publishing run event: %v", err)
	}
}

// callHandlers calls all registered trend handlers
func (e *Engine) callHandlers(t trend.Trend) {
	e.mu.RLock()
	handlers := make([]func(trend.Trend) error, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(t); err != nil {
			log.Printf("Error in trend handler: %v", err)
		}
	}
}
