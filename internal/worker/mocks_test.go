package worker

import (
	"context"
	"time"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// MockMatchStore implements logic.MatchStore; only ListMatches is used here.
type MockMatchStore struct {
	logic.MatchStore
	Matches   []models.MatchDetail
	LastQuery logic.MatchQuery
}

func (m *MockMatchStore) ListMatches(ctx context.Context, q logic.MatchQuery) ([]models.MatchDetail, error) {
	m.LastQuery = q
	return m.Matches, nil
}

type MockPredictionService struct {
	Calls        []int64
	Forced       []bool
	GenerateFunc func(matchID int64) error
}

func (m *MockPredictionService) Generate(ctx context.Context, matchID int64, force bool) (*models.Prediction, error) {
	m.Calls = append(m.Calls, matchID)
	m.Forced = append(m.Forced, force)
	if m.GenerateFunc != nil {
		if err := m.GenerateFunc(matchID); err != nil {
			return nil, err
		}
	}
	return &models.Prediction{MatchID: matchID}, nil
}

type MockEnrichmentService struct {
	Fresh     map[int64]bool
	FailOn    map[int64]error
	Enriched  []int64
	CheckedTT time.Duration
}

func (m *MockEnrichmentService) Enrich(ctx context.Context, matchID int64) (*models.Enrichment, error) {
	if err := m.FailOn[matchID]; err != nil {
		return nil, err
	}
	m.Enriched = append(m.Enriched, matchID)
	return &models.Enrichment{}, nil
}

func (m *MockEnrichmentService) Load(ctx context.Context, matchID int64) (*models.Enrichment, error) {
	return nil, logic.ErrNotFound
}

func (m *MockEnrichmentService) EnrichedSince(ctx context.Context, matchID int64, ttl time.Duration) (bool, error) {
	m.CheckedTT = ttl
	return m.Fresh[matchID], nil
}

type MockSyncService struct {
	UpcomingDays []int
	PastDays     []int
	Err          error
}

func (m *MockSyncService) SyncUpcoming(ctx context.Context, days int) (*models.SyncResult, error) {
	m.UpcomingDays = append(m.UpcomingDays, days)
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.SyncResult{Provider: "api-football", Fetched: 12, Upserted: 10}, nil
}

func (m *MockSyncService) SyncPast(ctx context.Context, days int) (*models.SyncResult, error) {
	m.PastDays = append(m.PastDays, days)
	return &models.SyncResult{Provider: "api-football", Fetched: 30, Upserted: 28}, nil
}

type MockCacheCleaner struct {
	Calls int
}

func (m *MockCacheCleaner) CleanExpired(ctx context.Context) (int64, error) {
	m.Calls++
	return 3, nil
}

func upcomingMatches(ids ...int64) []models.MatchDetail {
	out := make([]models.MatchDetail, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.MatchDetail{Match: models.Match{ID: id, Status: models.StatusScheduled}})
	}
	return out
}
