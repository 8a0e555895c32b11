package handlers

import (
	"context"
	"time"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// MockMatchService
type MockMatchService struct {
	UpcomingFunc func(ctx context.Context, q logic.MatchQuery) ([]models.MatchView, error)
	HistoryFunc  func(ctx context.Context, days int) ([]models.HistoryDay, error)
}

func (m *MockMatchService) Upcoming(ctx context.Context, q logic.MatchQuery) ([]models.MatchView, error) {
	if m.UpcomingFunc != nil {
		return m.UpcomingFunc(ctx, q)
	}
	return []models.MatchView{}, nil
}

func (m *MockMatchService) History(ctx context.Context, days int) ([]models.HistoryDay, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, days)
	}
	return nil, nil
}

// MockPredictionService
type MockPredictionService struct {
	GenerateFunc func(ctx context.Context, matchID int64, force bool) (*models.Prediction, error)
}

func (m *MockPredictionService) Generate(ctx context.Context, matchID int64, force bool) (*models.Prediction, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, matchID, force)
	}
	return &models.Prediction{
		MatchID:        matchID,
		HomeWinProb:    0.5,
		DrawProb:       0.3,
		AwayWinProb:    0.2,
		PredictedScore: "2-1",
		Outcome:        models.OutcomeHome,
		Source:         models.SourceModel,
	}, nil
}

// MockUsageService
type MockUsageService struct{}

func (m *MockUsageService) Usage(ctx context.Context) *models.UsageResponse {
	return &models.UsageResponse{
		Provider: "api-football",
		APIs:     []models.APIUsage{{API: "groq", Window: "day", Used: 3, Limit: 100, Remaining: 97}},
	}
}

// MockEnrichmentService
type MockEnrichmentService struct {
	EnrichFunc func(ctx context.Context, matchID int64) (*models.Enrichment, error)
}

func (m *MockEnrichmentService) Enrich(ctx context.Context, matchID int64) (*models.Enrichment, error) {
	if m.EnrichFunc != nil {
		return m.EnrichFunc(ctx, matchID)
	}
	return &models.Enrichment{}, nil
}

func (m *MockEnrichmentService) Load(ctx context.Context, matchID int64) (*models.Enrichment, error) {
	return nil, nil
}

func (m *MockEnrichmentService) EnrichedSince(ctx context.Context, matchID int64, ttl time.Duration) (bool, error) {
	return false, nil
}

// MockSyncService
type MockSyncService struct {
	SyncUpcomingFunc func(ctx context.Context, days int) (*models.SyncResult, error)
	SyncPastFunc     func(ctx context.Context, days int) (*models.SyncResult, error)
}

func (m *MockSyncService) SyncUpcoming(ctx context.Context, days int) (*models.SyncResult, error) {
	if m.SyncUpcomingFunc != nil {
		return m.SyncUpcomingFunc(ctx, days)
	}
	return &models.SyncResult{Provider: "api-football", Fetched: days, Upserted: days}, nil
}

func (m *MockSyncService) SyncPast(ctx context.Context, days int) (*models.SyncResult, error) {
	if m.SyncPastFunc != nil {
		return m.SyncPastFunc(ctx, days)
	}
	return &models.SyncResult{Provider: "api-football", Fetched: days, Upserted: days}, nil
}

// MockBulkRunner
type MockBulkRunner struct {
	RefreshUpcomingFunc func(ctx context.Context) (*models.BulkRefreshResult, error)
	EnrichUpcomingFunc  func(ctx context.Context) (*models.EnrichResult, error)
}

func (m *MockBulkRunner) RefreshUpcoming(ctx context.Context) (*models.BulkRefreshResult, error) {
	if m.RefreshUpcomingFunc != nil {
		return m.RefreshUpcomingFunc(ctx)
	}
	return &models.BulkRefreshResult{RunID: "run-1", Total: 2, Generated: 2}, nil
}

func (m *MockBulkRunner) EnrichUpcoming(ctx context.Context) (*models.EnrichResult, error) {
	if m.EnrichUpcomingFunc != nil {
		return m.EnrichUpcomingFunc(ctx)
	}
	return &models.EnrichResult{Enriched: 3}, nil
}

// MockSyncRunner
type MockSyncRunner struct {
	RunNowFunc func(ctx context.Context) (*models.SyncResponse, error)
}

func (m *MockSyncRunner) RunNow(ctx context.Context) (*models.SyncResponse, error) {
	if m.RunNowFunc != nil {
		return m.RunNowFunc(ctx)
	}
	return &models.SyncResponse{Upcoming: models.SyncResult{Provider: "football-data", Upserted: 4}}, nil
}

// MockCacheCleaner
type MockCacheCleaner struct {
	CleanExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *MockCacheCleaner) CleanExpired(ctx context.Context) (int64, error) {
	if m.CleanExpiredFunc != nil {
		return m.CleanExpiredFunc(ctx)
	}
	return 5, nil
}

// MockPredictionLog
type MockPredictionLog struct {
	StatsFunc func(ctx context.Context, since time.Time) (*models.GenerationStats, error)
}

func (m *MockPredictionLog) Append(ctx context.Context, entry models.PredictionLogEntry) error {
	return nil
}

func (m *MockPredictionLog) Stats(ctx context.Context, since time.Time) (*models.GenerationStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, since)
	}
	return &models.GenerationStats{Total: 10, BySource: map[string]uint64{"model": 8, "fallback": 2}, FallbackRatio: 0.2}, nil
}
