package models

import "time"

// MatchStatus is the lifecycle state of a fixture. It only moves forward.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusFinished  MatchStatus = "finished"
)

// Rank orders statuses along the lifecycle.
func (s MatchStatus) Rank() int {
	switch s {
	case StatusScheduled:
		return 0
	case StatusLive:
		return 1
	case StatusFinished:
		return 2
	}
	return -1
}

// Advance returns the status a stored match should take when a provider
// reports next. Backward transitions are ignored.
func (s MatchStatus) Advance(next MatchStatus) MatchStatus {
	if next.Rank() > s.Rank() {
		return next
	}
	return s
}

// Match is a single fixture between two teams.
type Match struct {
	ID         int64       `json:"id"`
	ProviderID *int64      `json:"provider_id,omitempty"`
	HomeTeamID int64       `json:"home_team_id"`
	AwayTeamID int64       `json:"away_team_id"`
	League     string      `json:"league"`
	LeagueID   string      `json:"league_id,omitempty"`
	Date       time.Time   `json:"date"`
	Time       string      `json:"time"`
	Status     MatchStatus `json:"status"`
	HomeScore  *int        `json:"home_score,omitempty"`
	AwayScore  *int        `json:"away_score,omitempty"`
	Venue      string      `json:"venue,omitempty"`
	City       string      `json:"city,omitempty"`
	Country    string      `json:"country,omitempty"`
}

// HasScore reports whether both sides of the final score are known.
func (m *Match) HasScore() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// FixtureTeam is a team as described by a sports data provider.
type FixtureTeam struct {
	ProviderID int64
	Name       string
	Crest      string
}

// Fixture is a provider-neutral fixture used by match synchronization.
type Fixture struct {
	Provider   string
	ProviderID int64
	League     string
	LeagueID   string
	Kickoff    time.Time
	Status     MatchStatus
	Home       FixtureTeam
	Away       FixtureTeam
	HomeScore  *int
	AwayScore  *int
	Venue      string
	City       string
	Country    string
}

// MatchDetail joins a match with both teams and its prediction, if any.
type MatchDetail struct {
	Match
	HomeTeam   Team        `json:"home_team"`
	AwayTeam   Team        `json:"away_team"`
	Prediction *Prediction `json:"prediction,omitempty"`
}
