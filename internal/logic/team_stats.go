package logic

import (
	"context"
	"fmt"
	"strings"

	"github.com/kickoffai/predictions-api/internal/models"
)

const (
	// HistoryWindow is how many finished matches feed a team's statistics.
	HistoryWindow = 20
	formWindow    = 5
	trendWindow   = 10
)

type teamStatsService struct {
	teams   TeamStore
	matches MatchStore
}

func NewTeamStatsService(teams TeamStore, matches MatchStore) TeamStatsService {
	return &teamStatsService{teams: teams, matches: matches}
}

// Compute aggregates the last HistoryWindow finished matches of a team,
// optionally restricted to one competition.
func (s *teamStatsService) Compute(ctx context.Context, teamID int64, leagueID string) (*models.AdvancedStats, error) {
	history, err := s.matches.RecentFinishedMatches(ctx, teamID, leagueID, HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load match history for team %d: %w", teamID, err)
	}
	stats := ComputeAdvancedStats(teamID, history)
	return &stats, nil
}

// Refresh computes a team's statistics and writes the flat totals back onto the team.
func (s *teamStatsService) Refresh(ctx context.Context, teamID int64, leagueID string) (*models.AdvancedStats, error) {
	stats, err := s.Compute(ctx, teamID, leagueID)
	if err != nil {
		return nil, err
	}
	if err := s.teams.UpdateTeamRecord(ctx, teamID, stats.Totals); err != nil {
		return nil, fmt.Errorf("update record for team %d: %w", teamID, err)
	}
	return stats, nil
}

// ComputeAdvancedStats builds the statistics bundle of teamID from its
// finished matches ordered most recent first. Matches without a final score
// are skipped and do not consume a form or trend slot.
//
// The form string is most recent first: "WDL" means the last match was a win.
func ComputeAdvancedStats(teamID int64, history []models.Match) models.AdvancedStats {
	stats := models.AdvancedStats{TeamID: teamID}
	var form strings.Builder
	var last10, prev10 bucket

	idx := 0
	for i := range history {
		m := &history[i]
		if !m.HasScore() {
			continue
		}
		if idx >= HistoryWindow {
			break
		}

		isHome := m.HomeTeamID == teamID
		gf, ga := *m.HomeScore, *m.AwayScore
		if !isHome {
			gf, ga = ga, gf
		}
		diff := gf - ga

		split := &stats.Away
		if isHome {
			split = &stats.Home
		}
		split.Played++
		split.GoalsFor += gf
		split.GoalsAgainst += ga
		stats.Totals.GoalsFor += gf
		stats.Totals.GoalsAgainst += ga

		var letter byte
		var points int
		switch {
		case diff > 0:
			letter, points = 'W', 3
			stats.Totals.Wins++
			split.Wins++
			if diff == 1 {
				stats.Performance.NarrowWins++
			} else if diff >= 3 {
				stats.Performance.LargeWins++
			}
		case diff < 0:
			letter = 'L'
			stats.Totals.Losses++
			split.Losses++
			if diff == -1 {
				stats.Performance.NarrowLosses++
			} else if diff <= -3 {
				stats.Performance.LargeLosses++
			}
		default:
			letter, points = 'D', 1
			stats.Totals.Draws++
			split.Draws++
		}

		if idx < formWindow {
			form.WriteByte(letter)
			stats.Recent.Points += points
			stats.Recent.GoalsFor += gf
			stats.Recent.GoalsAgainst += ga
		}
		if idx < trendWindow {
			last10.add(points, gf, ga)
		} else {
			prev10.add(points, gf, ga)
		}
		idx++
	}

	stats.Matches = idx
	stats.Recent.Form = form.String()
	if stats.Recent.Form == "" {
		stats.Recent.Form = models.FormNotAvailable
	}

	stats.Trend = models.TrendStats{
		Last10Points:           last10.points,
		Last10GoalsFor:         last10.goalsFor,
		Last10GoalsAgainst:     last10.goalsAgainst,
		Previous10Points:       prev10.points,
		Previous10GoalsFor:     prev10.goalsFor,
		Previous10GoalsAgainst: prev10.goalsAgainst,
		PointsDelta:            last10.points - prev10.points,
		GoalsForDelta:          last10.goalsFor - prev10.goalsFor,
		GoalsAgainstDelta:      last10.goalsAgainst - prev10.goalsAgainst,
	}
	stats.Trend.Improving = stats.Trend.PointsDelta > 0
	stats.Trend.Declining = stats.Trend.PointsDelta < -3

	played := max(1, idx)
	stats.Performance.WinQuality = float64(stats.Performance.LargeWins) / float64(max(1, stats.Totals.Wins))
	stats.Performance.AvgGoalsFor = float64(stats.Totals.GoalsFor) / float64(played)
	stats.Performance.AvgGoalsAgainst = float64(stats.Totals.GoalsAgainst) / float64(played)

	return stats
}

type bucket struct {
	points, goalsFor, goalsAgainst int
}

func (b *bucket) add(points, gf, ga int) {
	b.points += points
	b.goalsFor += gf
	b.goalsAgainst += ga
}
