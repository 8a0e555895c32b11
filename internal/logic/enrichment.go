package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kickoffai/predictions-api/internal/models"
)

const headToHeadMeetings = 5

type enrichmentService struct {
	store   EnrichmentStore
	matches MatchStore
	teams   TeamStore
	sports  SportsData
	weather WeatherProvider
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewEnrichmentService builds the enrichment merge. sports and weather may be
// nil when the matching provider is not configured; their lookups are skipped.
func NewEnrichmentService(store Store, sports SportsData, weather WeatherProvider, logger *zap.Logger) EnrichmentService {
	return &enrichmentService{
		store:   store,
		matches: store,
		teams:   store,
		sports:  sports,
		weather: weather,
		logger:  logger.Sugar(),
		now:     time.Now,
	}
}

// Enrich runs every available lookup for a match concurrently and upserts the
// results. A failed lookup is logged and leaves its field untouched.
func (s *enrichmentService) Enrich(ctx context.Context, matchID int64) (*models.Enrichment, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	home, err := s.teams.GetTeam(ctx, match.HomeTeamID)
	if err != nil {
		return nil, fmt.Errorf("load home team: %w", err)
	}
	away, err := s.teams.GetTeam(ctx, match.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("load away team: %w", err)
	}

	var out models.Enrichment
	g, gctx := errgroup.WithContext(ctx)

	if s.sports != nil {
		if home.ProviderID != nil {
			g.Go(func() error {
				injuries, err := s.sports.Injuries(gctx, *home.ProviderID)
				if s.lookupFailed("home injuries", matchID, err) {
					return nil
				}
				out.HomeInjuries = nonNilInjuries(injuries)
				return nil
			})
		}
		if away.ProviderID != nil {
			g.Go(func() error {
				injuries, err := s.sports.Injuries(gctx, *away.ProviderID)
				if s.lookupFailed("away injuries", matchID, err) {
					return nil
				}
				out.AwayInjuries = nonNilInjuries(injuries)
				return nil
			})
		}
		if match.ProviderID != nil {
			g.Go(func() error {
				h, a, err := s.sports.Lineups(gctx, *match.ProviderID)
				if s.lookupFailed("lineups", matchID, err) {
					return nil
				}
				out.HomeLineup, out.AwayLineup = h, a
				return nil
			})
		}
		if home.ProviderID != nil && away.ProviderID != nil {
			g.Go(func() error {
				h2h, err := s.sports.HeadToHead(gctx, *home.ProviderID, *away.ProviderID, headToHeadMeetings)
				if s.lookupFailed("head-to-head", matchID, err) {
					return nil
				}
				out.HeadToHead = h2h
				return nil
			})
		}
	}

	if s.weather != nil && match.City != "" {
		g.Go(func() error {
			w, err := s.weather.Current(gctx, match.City, match.Country)
			if s.lookupFailed("weather", matchID, err) {
				return nil
			}
			out.Weather = w
			return nil
		})
	}

	// goroutines never return errors; partial data is expected
	_ = g.Wait()

	rec, err := EncodeEnrichment(matchID, &out)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.now()
	if err := s.store.UpsertEnrichment(ctx, rec); err != nil {
		return nil, fmt.Errorf("upsert enrichment for match %d: %w", matchID, err)
	}
	out.UpdatedAt = rec.UpdatedAt

	s.logger.Infow("Match enriched",
		"matchID", matchID,
		"homeInjuries", len(out.HomeInjuries),
		"awayInjuries", len(out.AwayInjuries),
		"lineups", out.HomeLineup != nil || out.AwayLineup != nil,
		"weather", out.Weather != nil,
		"headToHead", len(out.HeadToHead),
	)
	return &out, nil
}

// Load reads the stored enrichment for a match. A missing record yields an
// empty enrichment; undecodable fields are dropped.
func (s *enrichmentService) Load(ctx context.Context, matchID int64) (*models.Enrichment, error) {
	rec, err := s.store.GetEnrichment(ctx, matchID)
	if errors.Is(err, ErrNotFound) {
		return &models.Enrichment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load enrichment for match %d: %w", matchID, err)
	}
	return DecodeEnrichment(rec, s.logger), nil
}

// EnrichedSince reports whether the match has an enrichment record newer than ttl.
func (s *enrichmentService) EnrichedSince(ctx context.Context, matchID int64, ttl time.Duration) (bool, error) {
	rec, err := s.store.GetEnrichment(ctx, matchID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.now().Sub(rec.UpdatedAt) < ttl, nil
}

func (s *enrichmentService) lookupFailed(what string, matchID int64, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrRateLimited) {
		s.logger.Infow("Enrichment lookup skipped", "lookup", what, "matchID", matchID, "reason", err)
	} else {
		s.logger.Warnw("Enrichment lookup failed", "lookup", what, "matchID", matchID, "error", err)
	}
	return true
}

func nonNilInjuries(in []models.Injury) []models.Injury {
	if in == nil {
		return []models.Injury{}
	}
	return in
}

// EncodeEnrichment converts the decoded form into the stored record. Fields
// that were not fetched stay NULL so an upsert keeps the previous value.
func EncodeEnrichment(matchID int64, e *models.Enrichment) (*models.EnrichmentRecord, error) {
	rec := &models.EnrichmentRecord{MatchID: matchID}
	fields := []struct {
		dst     **string
		value   any
		present bool
	}{
		{&rec.HomeInjuries, e.HomeInjuries, e.HomeInjuries != nil},
		{&rec.AwayInjuries, e.AwayInjuries, e.AwayInjuries != nil},
		{&rec.HomeLineup, e.HomeLineup, e.HomeLineup != nil},
		{&rec.AwayLineup, e.AwayLineup, e.AwayLineup != nil},
		{&rec.Weather, e.Weather, e.Weather != nil},
		{&rec.HeadToHead, e.HeadToHead, e.HeadToHead != nil},
	}
	for _, f := range fields {
		if !f.present {
			continue
		}
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode enrichment: %w", err)
		}
		text := string(data)
		*f.dst = &text
	}
	return rec, nil
}

// DecodeEnrichment parses each stored field independently. Malformed JSON
// is logged and treated as absent.
func DecodeEnrichment(rec *models.EnrichmentRecord, logger *zap.SugaredLogger) *models.Enrichment {
	out := &models.Enrichment{UpdatedAt: rec.UpdatedAt}
	decode := func(field string, raw *string, dst any) bool {
		if raw == nil || *raw == "" || *raw == "null" {
			return false
		}
		if err := json.Unmarshal([]byte(*raw), dst); err != nil {
			logger.Warnw("Ignoring malformed enrichment field", "matchID", rec.MatchID, "field", field, "error", err)
			return false
		}
		return true
	}

	var homeInj, awayInj []models.Injury
	if decode("home_injuries", rec.HomeInjuries, &homeInj) {
		out.HomeInjuries = homeInj
	}
	if decode("away_injuries", rec.AwayInjuries, &awayInj) {
		out.AwayInjuries = awayInj
	}
	var homeLineup, awayLineup models.Lineup
	if decode("home_lineup", rec.HomeLineup, &homeLineup) {
		out.HomeLineup = &homeLineup
	}
	if decode("away_lineup", rec.AwayLineup, &awayLineup) {
		out.AwayLineup = &awayLineup
	}
	var weather models.Weather
	if decode("weather", rec.Weather, &weather) {
		out.Weather = &weather
	}
	var h2h []models.HeadToHead
	if decode("head_to_head", rec.HeadToHead, &h2h) {
		out.HeadToHead = h2h
	}
	return out
}
