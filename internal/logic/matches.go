package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/kickoffai/predictions-api/internal/models"
)

type matchService struct {
	matches MatchStore
	now     func() time.Time
}

func NewMatchService(matches MatchStore) MatchService {
	return &matchService{matches: matches, now: time.Now}
}

// Upcoming lists scheduled matches from now on. q.From defaults to the current time.
func (s *matchService) Upcoming(ctx context.Context, q MatchQuery) ([]models.MatchView, error) {
	if q.From.IsZero() {
		q.From = s.now()
	}
	if len(q.Statuses) == 0 {
		q.Statuses = []models.MatchStatus{models.StatusScheduled}
	}
	details, err := s.matches.ListMatches(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list upcoming matches: %w", err)
	}
	views := make([]models.MatchView, 0, len(details))
	for i := range details {
		views = append(views, ToMatchView(&details[i]))
	}
	return views, nil
}

// History returns predicted matches of the last days full UTC days, newest day first.
func (s *matchService) History(ctx context.Context, days int) ([]models.HistoryDay, error) {
	if days <= 0 {
		days = 3
	}
	startToday := s.now().UTC().Truncate(24 * time.Hour)
	details, err := s.matches.ListMatches(ctx, MatchQuery{
		WithPrediction: true,
		From:           startToday.AddDate(0, 0, -days),
		To:             startToday.Add(-time.Nanosecond),
		Sort:           "date_desc",
		Limit:          maxMatchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list prediction history: %w", err)
	}

	var out []models.HistoryDay
	for i := range details {
		view := ToMatchView(&details[i])
		if n := len(out); n > 0 && out[n-1].Date == view.Date {
			out[n-1].Matches = append(out[n-1].Matches, view)
			continue
		}
		out = append(out, models.HistoryDay{Date: view.Date, Matches: []models.MatchView{view}})
	}
	return out, nil
}

// ToMatchView renders a match with its teams and formatted prediction.
func ToMatchView(d *models.MatchDetail) models.MatchView {
	v := models.MatchView{
		ID:       d.ID,
		Date:     d.Date.UTC().Format("2006-01-02"),
		Time:     d.Time,
		League:   d.League,
		Status:   d.Status,
		Venue:    d.Venue,
		HomeTeam: teamView(&d.HomeTeam),
		AwayTeam: teamView(&d.AwayTeam),
	}
	if d.HasScore() {
		v.Score = &models.ScoreView{Home: *d.HomeScore, Away: *d.AwayScore}
	}
	if d.Prediction != nil {
		v.Prediction = FormatPrediction(d.Prediction)
	}
	return v
}

func teamView(t *models.Team) models.TeamView {
	short := t.ShortName
	if short == "" {
		short = GenerateShortName(t.Name)
	}
	return models.TeamView{ID: t.ID, Name: t.Name, ShortName: short, Crest: t.Crest}
}
