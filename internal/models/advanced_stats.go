package models

// FormNotAvailable is the form string used when a team has no finished matches.
const FormNotAvailable = "N/A"

// SplitRecord is a win/draw/loss tally restricted to home or away matches.
type SplitRecord struct {
	Played       int `json:"played"`
	Wins         int `json:"wins"`
	Draws        int `json:"draws"`
	Losses       int `json:"losses"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
}

// TrendStats compares the last 10 finished matches against the 10 before them.
type TrendStats struct {
	Last10Points           int  `json:"last10_points"`
	Last10GoalsFor         int  `json:"last10_goals_for"`
	Last10GoalsAgainst     int  `json:"last10_goals_against"`
	Previous10Points       int  `json:"previous10_points"`
	Previous10GoalsFor     int  `json:"previous10_goals_for"`
	Previous10GoalsAgainst int  `json:"previous10_goals_against"`
	PointsDelta            int  `json:"points_delta"`
	GoalsForDelta          int  `json:"goals_for_delta"`
	GoalsAgainstDelta      int  `json:"goals_against_delta"`
	Improving              bool `json:"improving"`
	Declining              bool `json:"declining"`
}

// Direction renders the trend as a single word.
func (t TrendStats) Direction() string {
	switch {
	case t.Improving:
		return "improving"
	case t.Declining:
		return "declining"
	}
	return "stable"
}

// PerformanceQuality classifies results by margin.
type PerformanceQuality struct {
	NarrowWins      int     `json:"narrow_wins"`
	NarrowLosses    int     `json:"narrow_losses"`
	LargeWins       int     `json:"large_wins"`
	LargeLosses     int     `json:"large_losses"`
	WinQuality      float64 `json:"win_quality"`
	AvgGoalsFor     float64 `json:"avg_goals_for"`
	AvgGoalsAgainst float64 `json:"avg_goals_against"`
}

// RecentForm covers the five most recent finished matches.
type RecentForm struct {
	Form         string `json:"form"`
	Points       int    `json:"points"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
}

// AdvancedStats is recomputed from match history on every generation and never stored.
type AdvancedStats struct {
	TeamID      int64              `json:"team_id"`
	Matches     int                `json:"matches"`
	Totals      TeamRecord         `json:"totals"`
	Home        SplitRecord        `json:"home"`
	Away        SplitRecord        `json:"away"`
	Trend       TrendStats         `json:"trend"`
	Performance PerformanceQuality `json:"performance"`
	Recent      RecentForm         `json:"recent"`
}
