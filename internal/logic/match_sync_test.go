package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/cache"
	"github.com/kickoffai/predictions-api/internal/models"
)

func fixture(id int64, status models.MatchStatus, hs, as *int) models.Fixture {
	return models.Fixture{
		Provider:   "api-football",
		ProviderID: id,
		League:     "Premier League",
		LeagueID:   "39",
		Kickoff:    time.Date(2026, 5, 2, 14, 30, 0, 0, time.UTC),
		Status:     status,
		Home:       models.FixtureTeam{ProviderID: 100 + id, Name: "Tottenham Hotspur"},
		Away:       models.FixtureTeam{ProviderID: 200 + id, Name: "Wolves"},
		HomeScore:  hs,
		AwayScore:  as,
	}
}

// memBackend is a cache.Backend that never expires entries.
type memBackend struct {
	rows map[string]string
}

func (m *memBackend) Get(ctx context.Context, key string) (string, time.Time, error) {
	v, ok := m.rows[key]
	if !ok {
		return "", time.Time{}, cache.ErrMiss
	}
	return v, time.Now().Add(time.Hour), nil
}

func (m *memBackend) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	m.rows[key] = value
	return nil
}

func (m *memBackend) Delete(ctx context.Context, key string) error {
	delete(m.rows, key)
	return nil
}

func (m *memBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) { return 0, nil }

func newSyncService(store Store, sources []FixtureSource, c *cache.Cache) *syncService {
	svc := NewSyncService(store, sources, c, NewTeamStatsService(store, store), zap.NewNop()).(*syncService)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestSyncUpcoming(t *testing.T) {
	var teams []*models.Team
	var matches []*models.Match
	store := &MockStore{
		UpsertTeamByProviderIDFunc: func(ctx context.Context, tm *models.Team) (int64, error) {
			teams = append(teams, tm)
			return *tm.ProviderID, nil
		},
		UpsertMatchByProviderIDFunc: func(ctx context.Context, m *models.Match) (int64, error) {
			if *m.ProviderID == 2 {
				return 0, errors.New("constraint violation")
			}
			matches = append(matches, m)
			return 1, nil
		},
	}
	var gotFrom, gotTo time.Time
	src := &MockFixtureSource{SourceName: "api-football", FixturesFunc: func(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
		gotFrom, gotTo = from, to
		return []models.Fixture{
			fixture(1, models.StatusScheduled, nil, nil),
			fixture(2, models.StatusScheduled, nil, nil),
		}, nil
	}}

	res, err := newSyncService(store, []FixtureSource{src}, nil).SyncUpcoming(context.Background(), 3)
	if err != nil {
		t.Fatalf("SyncUpcoming() error = %v", err)
	}

	if res.Provider != "api-football" || res.Fetched != 2 || res.Upserted != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	wantFrom := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if !gotFrom.Equal(wantFrom) || !gotTo.Equal(wantFrom.AddDate(0, 0, 3)) {
		t.Errorf("range = %v..%v", gotFrom, gotTo)
	}
	if len(teams) != 4 || teams[0].ShortName != "SPURS" || teams[1].ShortName != "Wolves" || teams[0].League != "Premier League" {
		t.Errorf("teams = %+v", teams[0])
	}
	m := matches[0]
	if m.HomeTeamID != 101 || m.AwayTeamID != 201 || m.Time != "14:30" || m.LeagueID != "39" || m.Status != models.StatusScheduled {
		t.Errorf("match = %+v", m)
	}
}

func TestSyncUpcomingFallsBackToNextSource(t *testing.T) {
	primary := &MockFixtureSource{SourceName: "api-football", FixturesFunc: func(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
		return nil, ErrProviderUnavailable
	}}
	secondary := &MockFixtureSource{SourceName: "football-data", FixturesFunc: func(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
		return []models.Fixture{fixture(1, models.StatusScheduled, nil, nil)}, nil
	}}

	res, err := newSyncService(&MockStore{}, []FixtureSource{primary, secondary}, nil).SyncUpcoming(context.Background(), 7)
	if err != nil {
		t.Fatalf("SyncUpcoming() error = %v", err)
	}
	if res.Provider != "football-data" || res.Upserted != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestSyncUpcomingErrors(t *testing.T) {
	if _, err := newSyncService(&MockStore{}, nil, nil).SyncUpcoming(context.Background(), 7); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("no sources error = %v", err)
	}

	boom := errors.New("timeout")
	failing := &MockFixtureSource{SourceName: "api-football", FixturesFunc: func(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
		return nil, boom
	}}
	unused := &MockFixtureSource{SourceName: "football-data"}
	if _, err := newSyncService(&MockStore{}, []FixtureSource{failing, unused}, nil).SyncUpcoming(context.Background(), 7); !errors.Is(err, boom) {
		t.Errorf("hard failure error = %v, want %v", err, boom)
	}
	if unused.Calls != 0 {
		t.Error("a hard failure must not fall through to the next source")
	}
}

func TestSyncUpcomingUsesFixtureCache(t *testing.T) {
	c := cache.New(&memBackend{rows: map[string]string{}}, time.Hour, zap.NewNop())
	src := &MockFixtureSource{SourceName: "api-football", FixturesFunc: func(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
		return []models.Fixture{fixture(1, models.StatusScheduled, nil, nil)}, nil
	}}
	svc := newSyncService(&MockStore{}, []FixtureSource{src}, c)

	for i := 0; i < 2; i++ {
		res, err := svc.SyncUpcoming(context.Background(), 7)
		if err != nil || res.Upserted != 1 {
			t.Fatalf("SyncUpcoming() = %+v, %v", res, err)
		}
	}
	if src.Calls != 1 {
		t.Errorf("provider calls = %d, want 1", src.Calls)
	}
}

func TestSyncPastRefreshesTeams(t *testing.T) {
	refreshed := map[int64]bool{}
	store := &MockStore{
		UpdateTeamRecordFunc: func(ctx context.Context, id int64, rec models.TeamRecord) error {
			refreshed[id] = true
			return nil
		},
	}
	src := &MockFixtureSource{SourceName: "football-data", FixturesFunc: func(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
		return []models.Fixture{
			fixture(1, models.StatusFinished, intPtr(2), intPtr(1)),
			fixture(2, models.StatusFinished, nil, nil),
			fixture(3, models.StatusLive, intPtr(0), intPtr(0)),
		}, nil
	}}

	res, err := newSyncService(store, []FixtureSource{src}, nil).SyncPast(context.Background(), 10)
	if err != nil {
		t.Fatalf("SyncPast() error = %v", err)
	}
	if res.Fetched != 3 || res.Upserted != 1 || res.Skipped != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(refreshed) != 2 || !refreshed[101] || !refreshed[201] {
		t.Errorf("refreshed = %v", refreshed)
	}
}

func TestProviderStatus(t *testing.T) {
	tests := map[string]models.MatchStatus{
		"NS":        models.StatusScheduled,
		"SCHEDULED": models.StatusScheduled,
		"TIMED":     models.StatusScheduled,
		"PST":       models.StatusScheduled,
		"FT":        models.StatusFinished,
		"PEN":       models.StatusFinished,
		"FINISHED":  models.StatusFinished,
		"1H":        models.StatusLive,
		"IN_PLAY":   models.StatusLive,
		"HT":        models.StatusLive,
	}
	for code, want := range tests {
		if got := ProviderStatus(code); got != want {
			t.Errorf("ProviderStatus(%q) = %s, want %s", code, got, want)
		}
	}
}
