package logic

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

var (
	// ErrNotFound is returned when a match, team or prediction does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned when a quota check denies an upstream call.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderUnavailable is returned when a provider has no credentials configured.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrMalformedModelOutput is returned when a model reply cannot be repaired.
	ErrMalformedModelOutput = errors.New("malformed model output")
)

// PgPool defines the interface for PostgreSQL connection pool
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TeamStore persists teams.
type TeamStore interface {
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	UpdateTeamRecord(ctx context.Context, id int64, rec models.TeamRecord) error
	UpsertTeamByProviderID(ctx context.Context, t *models.Team) (int64, error)
}

// MatchStore persists matches.
type MatchStore interface {
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	// RecentFinishedMatches returns up to limit finished matches involving
	// teamID, most recent first. An empty leagueID matches every competition.
	RecentFinishedMatches(ctx context.Context, teamID int64, leagueID string, limit int) ([]models.Match, error)
	ListMatches(ctx context.Context, q MatchQuery) ([]models.MatchDetail, error)
	UpsertMatchByProviderID(ctx context.Context, m *models.Match) (int64, error)
}

// PredictionStore persists predictions, one per match.
type PredictionStore interface {
	GetPrediction(ctx context.Context, matchID int64) (*models.Prediction, error)
	UpsertPrediction(ctx context.Context, p *models.Prediction) error
}

// EnrichmentStore persists the raw enrichment record of a match.
type EnrichmentStore interface {
	GetEnrichment(ctx context.Context, matchID int64) (*models.EnrichmentRecord, error)
	UpsertEnrichment(ctx context.Context, rec *models.EnrichmentRecord) error
}

// Store is the full persistence surface.
type Store interface {
	TeamStore
	MatchStore
	PredictionStore
	EnrichmentStore
}

// Limiter gates calls to quota-bound upstream APIs.
type Limiter interface {
	TryConsume(ctx context.Context, api string, limit int, window ratelimit.Window) bool
	CurrentUsage(ctx context.Context, api string, window ratelimit.Window) int64
}

// TextModel is a single-shot prompt-in/text-out language model.
type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SportsData is the enrichment surface of a sports data provider.
type SportsData interface {
	// Injuries returns the current-season injury list of a team.
	Injuries(ctx context.Context, teamID int64) ([]models.Injury, error)
	Lineups(ctx context.Context, fixtureID int64) (home, away *models.Lineup, err error)
	HeadToHead(ctx context.Context, homeTeamID, awayTeamID int64, last int) ([]models.HeadToHead, error)
}

// FixtureSource lists fixtures from a sports data provider.
type FixtureSource interface {
	Name() string
	Fixtures(ctx context.Context, from, to time.Time) ([]models.Fixture, error)
}

// WeatherProvider returns current conditions for a venue.
type WeatherProvider interface {
	Current(ctx context.Context, city, country string) (*models.Weather, error)
}

// PredictionPublisher announces generated predictions.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, evt models.PredictionEvent) error
}

// PredictionLog appends generated predictions to the analytics store.
type PredictionLog interface {
	Append(ctx context.Context, entry models.PredictionLogEntry) error
	Stats(ctx context.Context, since time.Time) (*models.GenerationStats, error)
}

// TeamStatsService aggregates match history into AdvancedStats.
type TeamStatsService interface {
	Compute(ctx context.Context, teamID int64, leagueID string) (*models.AdvancedStats, error)
	Refresh(ctx context.Context, teamID int64, leagueID string) (*models.AdvancedStats, error)
}

// EnrichmentService merges contextual data into a match's enrichment record.
type EnrichmentService interface {
	Enrich(ctx context.Context, matchID int64) (*models.Enrichment, error)
	Load(ctx context.Context, matchID int64) (*models.Enrichment, error)
	EnrichedSince(ctx context.Context, matchID int64, ttl time.Duration) (bool, error)
}

// PredictionService generates or returns the prediction of a match.
type PredictionService interface {
	Generate(ctx context.Context, matchID int64, force bool) (*models.Prediction, error)
}

// MatchService lists matches for the API.
type MatchService interface {
	Upcoming(ctx context.Context, q MatchQuery) ([]models.MatchView, error)
	History(ctx context.Context, days int) ([]models.HistoryDay, error)
}

// SyncService maps provider fixtures onto local teams and matches.
type SyncService interface {
	SyncUpcoming(ctx context.Context, days int) (*models.SyncResult, error)
	SyncPast(ctx context.Context, days int) (*models.SyncResult, error)
}

// UsageService reports upstream quota consumption.
type UsageService interface {
	Usage(ctx context.Context) *models.UsageResponse
}
