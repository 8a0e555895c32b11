package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// Postgres implements logic.Store over a pgx pool.
type Postgres struct {
	pool logic.PgPool
}

func NewPostgres(pool logic.PgPool) *Postgres {
	return &Postgres{pool: pool}
}

var _ logic.Store = (*Postgres)(nil)

func notFound(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, logic.ErrNotFound)
	}
	return fmt.Errorf("load %s %v: %w", what, id, err)
}

// ============================================================================
// Teams
// ============================================================================

func (s *Postgres) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var t models.Team
	err := s.pool.QueryRow(ctx, `
		SELECT id, provider_id, name, short_name, crest, league,
			wins, draws, losses, goals_for, goals_against
		FROM teams WHERE id = $1`, id,
	).Scan(&t.ID, &t.ProviderID, &t.Name, &t.ShortName, &t.Crest, &t.League,
		&t.Wins, &t.Draws, &t.Losses, &t.GoalsFor, &t.GoalsAgainst)
	if err != nil {
		return nil, notFound(err, "team", id)
	}
	return &t, nil
}

func (s *Postgres) UpdateTeamRecord(ctx context.Context, id int64, rec models.TeamRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE teams SET wins = $2, draws = $3, losses = $4, goals_for = $5, goals_against = $6, updated_at = NOW()
		WHERE id = $1`,
		id, rec.Wins, rec.Draws, rec.Losses, rec.GoalsFor, rec.GoalsAgainst)
	if err != nil {
		return fmt.Errorf("update team %d record: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %d: %w", id, logic.ErrNotFound)
	}
	return nil
}

// UpsertTeamByProviderID inserts or renames a provider team. An existing crest
// is kept; the short name is regenerated only when the name changes or is missing.
func (s *Postgres) UpsertTeamByProviderID(ctx context.Context, t *models.Team) (int64, error) {
	if t.ProviderID == nil {
		return 0, errors.New("upsert team: missing provider id")
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO teams (provider_id, name, short_name, crest, league)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id) DO UPDATE SET
			short_name = CASE
				WHEN teams.short_name = '' OR teams.name <> EXCLUDED.name THEN EXCLUDED.short_name
				ELSE teams.short_name END,
			name = EXCLUDED.name,
			league = EXCLUDED.league,
			crest = COALESCE(NULLIF(teams.crest, ''), EXCLUDED.crest),
			updated_at = NOW()
		RETURNING id`,
		*t.ProviderID, t.Name, t.ShortName, t.Crest, t.League,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert team %d: %w", *t.ProviderID, err)
	}
	return id, nil
}

// ============================================================================
// Matches
// ============================================================================

const matchColumns = `id, provider_id, home_team_id, away_team_id, league, league_id,
	date, time, status, home_score, away_score, venue, city, country`

func matchFields(m *models.Match) []any {
	return []any{&m.ID, &m.ProviderID, &m.HomeTeamID, &m.AwayTeamID, &m.League, &m.LeagueID,
		&m.Date, &m.Time, &m.Status, &m.HomeScore, &m.AwayScore, &m.Venue, &m.City, &m.Country}
}

func (s *Postgres) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	var m models.Match
	err := s.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id).Scan(matchFields(&m)...)
	if err != nil {
		return nil, notFound(err, "match", id)
	}
	return &m, nil
}

func (s *Postgres) RecentFinishedMatches(ctx context.Context, teamID int64, leagueID string, limit int) ([]models.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status = 'finished'
			AND (home_team_id = $1 OR away_team_id = $1)
			AND ($2::text = '' OR league_id = $2)
		ORDER BY date DESC, id DESC
		LIMIT $3`, teamID, leagueID, limit)
	if err != nil {
		return nil, fmt.Errorf("query finished matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(matchFields(&m)...); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) ListMatches(ctx context.Context, q logic.MatchQuery) ([]models.MatchDetail, error) {
	sql, args, err := logic.BuildMatchQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchDetail
	for rows.Next() {
		d, err := scanMatchDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// scanMatchDetail reads one row selected with logic.MatchSelectColumns.
func scanMatchDetail(row pgx.Row) (models.MatchDetail, error) {
	var d models.MatchDetail
	var (
		predID                           uuid.NullUUID
		homeProb, drawProb, awayProb     *float64
		bttsProb, over25Prob, confidence *float64
		score, analysis, outcome, source *string
		confidenceScore                  *int
		createdAt, updatedAt             *time.Time
	)

	dest := append(matchFields(&d.Match),
		&d.HomeTeam.Name, &d.HomeTeam.ShortName, &d.HomeTeam.Crest,
		&d.AwayTeam.Name, &d.AwayTeam.ShortName, &d.AwayTeam.Crest,
		&predID, &homeProb, &drawProb, &awayProb, &score, &confidenceScore,
		&bttsProb, &over25Prob, &analysis, &confidence, &outcome, &source, &createdAt, &updatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return d, fmt.Errorf("scan match detail: %w", err)
	}
	d.HomeTeam.ID = d.HomeTeamID
	d.AwayTeam.ID = d.AwayTeamID

	if predID.Valid {
		d.Prediction = &models.Prediction{
			ID:              predID.UUID,
			MatchID:         d.ID,
			HomeWinProb:     deref(homeProb),
			DrawProb:        deref(drawProb),
			AwayWinProb:     deref(awayProb),
			PredictedScore:  deref(score),
			ConfidenceScore: deref(confidenceScore),
			BTTSProb:        deref(bttsProb),
			Over25Prob:      deref(over25Prob),
			Analysis:        deref(analysis),
			Confidence:      deref(confidence),
			Outcome:         models.Outcome(deref(outcome)),
			Source:          models.PredictionSource(deref(source)),
			CreatedAt:       deref(createdAt),
			UpdatedAt:       deref(updatedAt),
		}
	}
	return d, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// UpsertMatchByProviderID inserts or updates a provider fixture. The status
// never moves backwards and known scores or venue details are not erased.
func (s *Postgres) UpsertMatchByProviderID(ctx context.Context, m *models.Match) (int64, error) {
	if m.ProviderID == nil {
		return 0, errors.New("upsert match: missing provider id")
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO matches (provider_id, home_team_id, away_team_id, league, league_id,
			date, time, status, home_score, away_score, venue, city, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (provider_id) DO UPDATE SET
			status = CASE
				WHEN matches.status = 'finished' THEN matches.status
				WHEN EXCLUDED.status = 'finished' THEN EXCLUDED.status
				WHEN matches.status = 'live' THEN matches.status
				ELSE EXCLUDED.status END,
			date = EXCLUDED.date,
			time = EXCLUDED.time,
			home_score = COALESCE(EXCLUDED.home_score, matches.home_score),
			away_score = COALESCE(EXCLUDED.away_score, matches.away_score),
			venue = COALESCE(NULLIF(EXCLUDED.venue, ''), matches.venue),
			city = COALESCE(NULLIF(EXCLUDED.city, ''), matches.city),
			country = COALESCE(NULLIF(EXCLUDED.country, ''), matches.country),
			updated_at = NOW()
		RETURNING id`,
		*m.ProviderID, m.HomeTeamID, m.AwayTeamID, m.League, m.LeagueID,
		m.Date, m.Time, m.Status, m.HomeScore, m.AwayScore, m.Venue, m.City, m.Country,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert match %d: %w", *m.ProviderID, err)
	}
	return id, nil
}

// ============================================================================
// Predictions
// ============================================================================

func (s *Postgres) GetPrediction(ctx context.Context, matchID int64) (*models.Prediction, error) {
	var p models.Prediction
	err := s.pool.QueryRow(ctx, `
		SELECT id, match_id, home_win_prob, draw_prob, away_win_prob, predicted_score, confidence_score,
			btts_prob, over25_prob, analysis, confidence, outcome, source, created_at, updated_at
		FROM predictions WHERE match_id = $1`, matchID,
	).Scan(&p.ID, &p.MatchID, &p.HomeWinProb, &p.DrawProb, &p.AwayWinProb, &p.PredictedScore, &p.ConfidenceScore,
		&p.BTTSProb, &p.Over25Prob, &p.Analysis, &p.Confidence, &p.Outcome, &p.Source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "prediction for match", matchID)
	}
	return &p, nil
}

// UpsertPrediction replaces the prediction of p.MatchID and fills p.ID and
// p.CreatedAt from the stored row. The creation time of a replaced row is kept.
func (s *Postgres) UpsertPrediction(ctx context.Context, p *models.Prediction) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO predictions (match_id, home_win_prob, draw_prob, away_win_prob, predicted_score,
			confidence_score, btts_prob, over25_prob, analysis, confidence, outcome, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (match_id) DO UPDATE SET
			home_win_prob = EXCLUDED.home_win_prob,
			draw_prob = EXCLUDED.draw_prob,
			away_win_prob = EXCLUDED.away_win_prob,
			predicted_score = EXCLUDED.predicted_score,
			confidence_score = EXCLUDED.confidence_score,
			btts_prob = EXCLUDED.btts_prob,
			over25_prob = EXCLUDED.over25_prob,
			analysis = EXCLUDED.analysis,
			confidence = EXCLUDED.confidence,
			outcome = EXCLUDED.outcome,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		p.MatchID, p.HomeWinProb, p.DrawProb, p.AwayWinProb, p.PredictedScore,
		p.ConfidenceScore, p.BTTSProb, p.Over25Prob, p.Analysis, p.Confidence, p.Outcome, p.Source,
		p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert prediction for match %d: %w", p.MatchID, err)
	}
	return nil
}

// ============================================================================
// Enrichment
// ============================================================================

func (s *Postgres) GetEnrichment(ctx context.Context, matchID int64) (*models.EnrichmentRecord, error) {
	rec := models.EnrichmentRecord{MatchID: matchID}
	err := s.pool.QueryRow(ctx, `
		SELECT home_injuries::text, away_injuries::text, home_lineup::text, away_lineup::text,
			weather::text, head_to_head::text, updated_at
		FROM match_enrichment WHERE match_id = $1`, matchID,
	).Scan(&rec.HomeInjuries, &rec.AwayInjuries, &rec.HomeLineup, &rec.AwayLineup,
		&rec.Weather, &rec.HeadToHead, &rec.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "enrichment for match", matchID)
	}
	return &rec, nil
}

// UpsertEnrichment writes the fields present in rec. NULL fields keep the
// previously stored value.
func (s *Postgres) UpsertEnrichment(ctx context.Context, rec *models.EnrichmentRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_enrichment (match_id, home_injuries, away_injuries, home_lineup, away_lineup,
			weather, head_to_head, updated_at)
		VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5::jsonb, $6::jsonb, $7::jsonb, $8)
		ON CONFLICT (match_id) DO UPDATE SET
			home_injuries = COALESCE(EXCLUDED.home_injuries, match_enrichment.home_injuries),
			away_injuries = COALESCE(EXCLUDED.away_injuries, match_enrichment.away_injuries),
			home_lineup = COALESCE(EXCLUDED.home_lineup, match_enrichment.home_lineup),
			away_lineup = COALESCE(EXCLUDED.away_lineup, match_enrichment.away_lineup),
			weather = COALESCE(EXCLUDED.weather, match_enrichment.weather),
			head_to_head = COALESCE(EXCLUDED.head_to_head, match_enrichment.head_to_head),
			updated_at = EXCLUDED.updated_at`,
		rec.MatchID, rec.HomeInjuries, rec.AwayInjuries, rec.HomeLineup, rec.AwayLineup,
		rec.Weather, rec.HeadToHead, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert enrichment for match %d: %w", rec.MatchID, err)
	}
	return nil
}
