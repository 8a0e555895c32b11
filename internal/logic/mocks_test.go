package logic

import (
	"context"
	"sync"
	"time"

	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

// MockStore implements Store. Unset funcs return ErrNotFound or succeed silently.
type MockStore struct {
	GetTeamFunc                 func(ctx context.Context, id int64) (*models.Team, error)
	UpdateTeamRecordFunc        func(ctx context.Context, id int64, rec models.TeamRecord) error
	UpsertTeamByProviderIDFunc  func(ctx context.Context, t *models.Team) (int64, error)
	GetMatchFunc                func(ctx context.Context, id int64) (*models.Match, error)
	RecentFinishedMatchesFunc   func(ctx context.Context, teamID int64, leagueID string, limit int) ([]models.Match, error)
	ListMatchesFunc             func(ctx context.Context, q MatchQuery) ([]models.MatchDetail, error)
	UpsertMatchByProviderIDFunc func(ctx context.Context, m *models.Match) (int64, error)
	GetPredictionFunc           func(ctx context.Context, matchID int64) (*models.Prediction, error)
	UpsertPredictionFunc        func(ctx context.Context, p *models.Prediction) error
	GetEnrichmentFunc           func(ctx context.Context, matchID int64) (*models.EnrichmentRecord, error)
	UpsertEnrichmentFunc        func(ctx context.Context, rec *models.EnrichmentRecord) error
}

func (m *MockStore) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	if m.GetTeamFunc != nil {
		return m.GetTeamFunc(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) UpdateTeamRecord(ctx context.Context, id int64, rec models.TeamRecord) error {
	if m.UpdateTeamRecordFunc != nil {
		return m.UpdateTeamRecordFunc(ctx, id, rec)
	}
	return nil
}

func (m *MockStore) UpsertTeamByProviderID(ctx context.Context, t *models.Team) (int64, error) {
	if m.UpsertTeamByProviderIDFunc != nil {
		return m.UpsertTeamByProviderIDFunc(ctx, t)
	}
	return *t.ProviderID, nil
}

func (m *MockStore) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) RecentFinishedMatches(ctx context.Context, teamID int64, leagueID string, limit int) ([]models.Match, error) {
	if m.RecentFinishedMatchesFunc != nil {
		return m.RecentFinishedMatchesFunc(ctx, teamID, leagueID, limit)
	}
	return nil, nil
}

func (m *MockStore) ListMatches(ctx context.Context, q MatchQuery) ([]models.MatchDetail, error) {
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(ctx, q)
	}
	return nil, nil
}

func (m *MockStore) UpsertMatchByProviderID(ctx context.Context, match *models.Match) (int64, error) {
	if m.UpsertMatchByProviderIDFunc != nil {
		return m.UpsertMatchByProviderIDFunc(ctx, match)
	}
	return *match.ProviderID, nil
}

func (m *MockStore) GetPrediction(ctx context.Context, matchID int64) (*models.Prediction, error) {
	if m.GetPredictionFunc != nil {
		return m.GetPredictionFunc(ctx, matchID)
	}
	return nil, ErrNotFound
}

func (m *MockStore) UpsertPrediction(ctx context.Context, p *models.Prediction) error {
	if m.UpsertPredictionFunc != nil {
		return m.UpsertPredictionFunc(ctx, p)
	}
	return nil
}

func (m *MockStore) GetEnrichment(ctx context.Context, matchID int64) (*models.EnrichmentRecord, error) {
	if m.GetEnrichmentFunc != nil {
		return m.GetEnrichmentFunc(ctx, matchID)
	}
	return nil, ErrNotFound
}

func (m *MockStore) UpsertEnrichment(ctx context.Context, rec *models.EnrichmentRecord) error {
	if m.UpsertEnrichmentFunc != nil {
		return m.UpsertEnrichmentFunc(ctx, rec)
	}
	return nil
}

// MockModel counts calls so tests can assert whether the model ran.
type MockModel struct {
	mu        sync.Mutex
	Calls     int
	Prompts   []string
	ReplyFunc func(prompt string) (string, error)
}

func (m *MockModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	return m.ReplyFunc(prompt)
}

type MockLimiter struct {
	TryConsumeFunc   func(api string, limit int, window ratelimit.Window) bool
	CurrentUsageFunc func(api string, window ratelimit.Window) int64
}

func (m *MockLimiter) TryConsume(ctx context.Context, api string, limit int, window ratelimit.Window) bool {
	if m.TryConsumeFunc != nil {
		return m.TryConsumeFunc(api, limit, window)
	}
	return true
}

func (m *MockLimiter) CurrentUsage(ctx context.Context, api string, window ratelimit.Window) int64 {
	if m.CurrentUsageFunc != nil {
		return m.CurrentUsageFunc(api, window)
	}
	return 0
}

type MockSportsData struct {
	InjuriesFunc   func(ctx context.Context, teamID int64) ([]models.Injury, error)
	LineupsFunc    func(ctx context.Context, fixtureID int64) (*models.Lineup, *models.Lineup, error)
	HeadToHeadFunc func(ctx context.Context, home, away int64, last int) ([]models.HeadToHead, error)
}

func (m *MockSportsData) Injuries(ctx context.Context, teamID int64) ([]models.Injury, error) {
	if m.InjuriesFunc != nil {
		return m.InjuriesFunc(ctx, teamID)
	}
	return nil, ErrProviderUnavailable
}

func (m *MockSportsData) Lineups(ctx context.Context, fixtureID int64) (*models.Lineup, *models.Lineup, error) {
	if m.LineupsFunc != nil {
		return m.LineupsFunc(ctx, fixtureID)
	}
	return nil, nil, ErrProviderUnavailable
}

func (m *MockSportsData) HeadToHead(ctx context.Context, home, away int64, last int) ([]models.HeadToHead, error) {
	if m.HeadToHeadFunc != nil {
		return m.HeadToHeadFunc(ctx, home, away, last)
	}
	return nil, ErrProviderUnavailable
}

type MockWeather struct {
	CurrentFunc func(ctx context.Context, city, country string) (*models.Weather, error)
}

func (m *MockWeather) Current(ctx context.Context, city, country string) (*models.Weather, error) {
	return m.CurrentFunc(ctx, city, country)
}

type MockFixtureSource struct {
	SourceName   string
	Calls        int
	FixturesFunc func(ctx context.Context, from, to time.Time) ([]models.Fixture, error)
}

func (m *MockFixtureSource) Name() string { return m.SourceName }

func (m *MockFixtureSource) Fixtures(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
	m.Calls++
	return m.FixturesFunc(ctx, from, to)
}

type MockPublisher struct {
	Events []models.PredictionEvent
	Err    error
}

func (m *MockPublisher) PublishPrediction(ctx context.Context, evt models.PredictionEvent) error {
	m.Events = append(m.Events, evt)
	return m.Err
}

type MockPredictionLog struct {
	Entries []models.PredictionLogEntry
}

func (m *MockPredictionLog) Append(ctx context.Context, entry models.PredictionLogEntry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockPredictionLog) Stats(ctx context.Context, since time.Time) (*models.GenerationStats, error) {
	return &models.GenerationStats{Total: uint64(len(m.Entries))}, nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

// finished builds a finished match between home and away.
func finished(home, away int64, hs, as int, date time.Time) models.Match {
	return models.Match{
		HomeTeamID: home,
		AwayTeamID: away,
		Date:       date,
		Status:     models.StatusFinished,
		HomeScore:  intPtr(hs),
		AwayScore:  intPtr(as),
	}
}
