package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/cache"
	"github.com/kickoffai/predictions-api/internal/models"
)

// FixtureCacheTTL bounds how often the upcoming fixture list is refetched.
const FixtureCacheTTL = 3 * time.Hour

var matchesSynced = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sync_matches_upserted_total",
	Help: "Matches written by fixture synchronization, by provider and direction",
}, []string{"provider", "direction"})

type syncService struct {
	store   Store
	sources []FixtureSource
	cache   *cache.Cache
	stats   TeamStatsService
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewSyncService builds a sync service that tries sources in order. A source
// is skipped when it has no credentials or its quota is spent. fixtures may be nil.
func NewSyncService(store Store, sources []FixtureSource, fixtures *cache.Cache, stats TeamStatsService, logger *zap.Logger) SyncService {
	return &syncService{
		store:   store,
		sources: sources,
		cache:   fixtures,
		stats:   stats,
		logger:  logger.Sugar(),
		now:     time.Now,
	}
}

// SyncUpcoming upserts the fixtures of the next days days.
func (s *syncService) SyncUpcoming(ctx context.Context, days int) (*models.SyncResult, error) {
	if days <= 0 {
		days = 7
	}
	now := s.now().UTC()
	from := now.Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, days)

	source, fixtures, err := s.fetch(ctx, from, to, true)
	if err != nil {
		return nil, err
	}

	result := &models.SyncResult{Provider: source, Fetched: len(fixtures)}
	for i := range fixtures {
		f := &fixtures[i]
		if _, _, err := s.upsertFixture(ctx, f); err != nil {
			result.Skipped++
			s.logger.Warnw("Failed to sync fixture", "provider", source, "providerID", f.ProviderID, "error", err)
			continue
		}
		result.Upserted++
	}
	matchesSynced.WithLabelValues(source, "upcoming").Add(float64(result.Upserted))

	s.logger.Infow("Upcoming fixtures synced",
		"provider", source,
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"skipped", result.Skipped,
	)
	return result, nil
}

// SyncPast upserts the finished matches of the last days days and recomputes
// the totals of every team involved. Fixtures without a final score are skipped.
func (s *syncService) SyncPast(ctx context.Context, days int) (*models.SyncResult, error) {
	if days <= 0 {
		days = 30
	}
	now := s.now().UTC()

	source, fixtures, err := s.fetch(ctx, now.AddDate(0, 0, -days), now, false)
	if err != nil {
		return nil, err
	}

	result := &models.SyncResult{Provider: source, Fetched: len(fixtures)}
	touched := make(map[int64]struct{})
	for i := range fixtures {
		f := &fixtures[i]
		if f.Status != models.StatusFinished || f.HomeScore == nil || f.AwayScore == nil {
			result.Skipped++
			continue
		}
		homeID, awayID, err := s.upsertFixture(ctx, f)
		if err != nil {
			result.Skipped++
			s.logger.Warnw("Failed to sync past fixture", "provider", source, "providerID", f.ProviderID, "error", err)
			continue
		}
		touched[homeID] = struct{}{}
		touched[awayID] = struct{}{}
		result.Upserted++
	}
	matchesSynced.WithLabelValues(source, "past").Add(float64(result.Upserted))

	for teamID := range touched {
		if _, err := s.stats.Refresh(ctx, teamID, ""); err != nil {
			s.logger.Warnw("Failed to refresh team totals", "teamID", teamID, "error", err)
		}
	}

	s.logger.Infow("Past fixtures synced",
		"provider", source,
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"teams", len(touched),
	)
	return result, nil
}

// fetch returns the fixtures of the first usable source.
func (s *syncService) fetch(ctx context.Context, from, to time.Time, cached bool) (string, []models.Fixture, error) {
	if len(s.sources) == 0 {
		return "", nil, ErrProviderUnavailable
	}

	var lastErr error
	for _, src := range s.sources {
		fixtures, err := s.fixtures(ctx, src, from, to, cached)
		if err == nil {
			return src.Name(), fixtures, nil
		}
		if !errors.Is(err, ErrProviderUnavailable) && !errors.Is(err, ErrRateLimited) {
			return src.Name(), nil, fmt.Errorf("fetch fixtures from %s: %w", src.Name(), err)
		}
		s.logger.Infow("Fixture source skipped", "provider", src.Name(), "reason", err)
		lastErr = err
	}
	return "", nil, lastErr
}

func (s *syncService) fixtures(ctx context.Context, src FixtureSource, from, to time.Time, cached bool) ([]models.Fixture, error) {
	if !cached || s.cache == nil {
		return src.Fixtures(ctx, from, to)
	}
	key := fmt.Sprintf("fixtures:%s:%s:%s", src.Name(), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return cache.WithCache(ctx, s.cache, key, FixtureCacheTTL, func(ctx context.Context) ([]models.Fixture, error) {
		return src.Fixtures(ctx, from, to)
	})
}

func (s *syncService) upsertFixture(ctx context.Context, f *models.Fixture) (homeID, awayID int64, err error) {
	homeID, err = s.upsertTeam(ctx, f.Home, f.League)
	if err != nil {
		return 0, 0, err
	}
	awayID, err = s.upsertTeam(ctx, f.Away, f.League)
	if err != nil {
		return 0, 0, err
	}

	providerID := f.ProviderID
	kickoff := f.Kickoff.UTC()
	m := &models.Match{
		ProviderID: &providerID,
		HomeTeamID: homeID,
		AwayTeamID: awayID,
		League:     f.League,
		LeagueID:   f.LeagueID,
		Date:       kickoff,
		Time:       kickoff.Format("15:04"),
		Status:     f.Status,
		HomeScore:  f.HomeScore,
		AwayScore:  f.AwayScore,
		Venue:      f.Venue,
		City:       f.City,
		Country:    f.Country,
	}
	if _, err := s.store.UpsertMatchByProviderID(ctx, m); err != nil {
		return 0, 0, fmt.Errorf("upsert match %d: %w", providerID, err)
	}
	return homeID, awayID, nil
}

func (s *syncService) upsertTeam(ctx context.Context, ft models.FixtureTeam, league string) (int64, error) {
	providerID := ft.ProviderID
	id, err := s.store.UpsertTeamByProviderID(ctx, &models.Team{
		Name:       ft.Name,
		ShortName:  GenerateShortName(ft.Name),
		Crest:      ft.Crest,
		ProviderID: &providerID,
		League:     league,
	})
	if err != nil {
		return 0, fmt.Errorf("upsert team %q: %w", ft.Name, err)
	}
	return id, nil
}

// ProviderStatus maps a provider status code onto the match lifecycle.
// Postponed and cancelled fixtures stay scheduled so a later kickoff can
// still advance them.
func ProviderStatus(code string) models.MatchStatus {
	switch code {
	case "NS", "TBD", "PST", "CANC", "SCHEDULED", "TIMED", "POSTPONED", "CANCELLED":
		return models.StatusScheduled
	case "FT", "AET", "PEN", "FINISHED", "AWARDED":
		return models.StatusFinished
	}
	return models.StatusLive
}
