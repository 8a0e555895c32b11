package logic

import (
	"fmt"
	"strings"
	"time"

	"github.com/kickoffai/predictions-api/internal/models"
)

// MatchQuery holds parameters for listing matches with teams and predictions.
type MatchQuery struct {
	League         string               `json:"league"`    // WHERE m.league = $n
	LeagueID       string               `json:"league_id"` // WHERE m.league_id = $n
	Statuses       []models.MatchStatus `json:"statuses"`  // WHERE m.status IN (...)
	From           time.Time            `json:"from"`
	To             time.Time            `json:"to"`
	WithPrediction bool                 `json:"with_prediction"` // only matches that have one
	WithProviderID bool                 `json:"with_provider_id"`
	Sort           string               `json:"sort"` // "date" or "date_desc"
	Limit          int                  `json:"limit"`
}

// MatchSelectColumns is the column list scanned by the store, in order.
const MatchSelectColumns = `m.id, m.provider_id, m.home_team_id, m.away_team_id, m.league, m.league_id,
		m.date, m.time, m.status, m.home_score, m.away_score, m.venue, m.city, m.country,
		ht.name, ht.short_name, ht.crest,
		awt.name, awt.short_name, awt.crest,
		p.id, p.home_win_prob, p.draw_prob, p.away_win_prob, p.predicted_score, p.confidence_score,
		p.btts_prob, p.over25_prob, p.analysis, p.confidence, p.outcome, p.source, p.created_at, p.updated_at`

// allowedSorts maps safe API values to ORDER BY clauses
var allowedSorts = map[string]string{
	"":          "m.date ASC, m.id ASC",
	"date":      "m.date ASC, m.id ASC",
	"date_desc": "m.date DESC, m.id DESC",
}

const (
	defaultMatchLimit = 50
	maxMatchLimit     = 500
)

// BuildMatchQuery constructs a safe PostgreSQL query for MatchQuery
func BuildMatchQuery(q MatchQuery) (string, []any, error) {
	// 1. Validate sort
	orderBy, ok := allowedSorts[q.Sort]
	if !ok {
		return "", nil, fmt.Errorf("invalid sort: %s", q.Sort)
	}

	// 2. Base query
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(MatchSelectColumns)
	sb.WriteString(`
	FROM matches m
	JOIN teams ht ON ht.id = m.home_team_id
	JOIN teams awt ON awt.id = m.away_team_id
	`)
	if q.WithPrediction {
		sb.WriteString("JOIN")
	} else {
		sb.WriteString("LEFT JOIN")
	}
	sb.WriteString(" predictions p ON p.match_id = m.id WHERE 1=1")

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// 3. Filters
	if q.League != "" {
		sb.WriteString(" AND m.league = " + arg(q.League))
	}
	if q.LeagueID != "" {
		sb.WriteString(" AND m.league_id = " + arg(q.LeagueID))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			if s.Rank() < 0 {
				return "", nil, fmt.Errorf("invalid status: %s", s)
			}
			statuses = append(statuses, string(s))
		}
		sb.WriteString(" AND m.status = ANY(" + arg(statuses) + ")")
	}
	if !q.From.IsZero() {
		sb.WriteString(" AND m.date >= " + arg(q.From))
	}
	if !q.To.IsZero() {
		sb.WriteString(" AND m.date <= " + arg(q.To))
	}
	if q.WithProviderID {
		sb.WriteString(" AND m.provider_id IS NOT NULL")
	}

	// 4. Order and limit
	limit := q.Limit
	if limit <= 0 || limit > maxMatchLimit {
		limit = defaultMatchLimit
	}
	fmt.Fprintf(&sb, " ORDER BY %s LIMIT %d", orderBy, limit)

	return sb.String(), args, nil
}
