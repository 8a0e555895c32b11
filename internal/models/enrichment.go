package models

import (
	"strings"
	"time"
)

// Injury is a player reported unavailable for a fixture.
type Injury struct {
	Player string `json:"player"`
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// LineupPlayer is one member of a starting eleven.
type LineupPlayer struct {
	Name     string `json:"name"`
	Number   int    `json:"number,omitempty"`
	Position string `json:"position,omitempty"`
}

// Lineup is a probable or confirmed team sheet.
type Lineup struct {
	Formation string         `json:"formation"`
	Coach     string         `json:"coach,omitempty"`
	StartXI   []LineupPlayer `json:"start_xi,omitempty"`
}

// Weather is a snapshot of current conditions at the venue.
type Weather struct {
	Main        string  `json:"main"`
	Description string  `json:"description"`
	TempC       float64 `json:"temp_c"`
	WindSpeed   float64 `json:"wind_speed"`
	Humidity    int     `json:"humidity"`
	City        string  `json:"city,omitempty"`
}

// Weather categories.
const (
	WeatherRain   = "rain"
	WeatherSnow   = "snow"
	WeatherWind   = "wind"
	WeatherNormal = "normal"
)

// StrongWindSpeed is the wind speed in m/s above which play is affected.
const StrongWindSpeed = 10.0

// Category buckets the snapshot into the conditions that change a match.
func (w *Weather) Category() string {
	switch {
	case strings.EqualFold(w.Main, "Rain") || strings.EqualFold(w.Main, "Drizzle") || strings.EqualFold(w.Main, "Thunderstorm"):
		return WeatherRain
	case strings.EqualFold(w.Main, "Snow"):
		return WeatherSnow
	case w.WindSpeed > StrongWindSpeed:
		return WeatherWind
	}
	return WeatherNormal
}

// HeadToHead is a past meeting between the two teams.
type HeadToHead struct {
	Date      time.Time `json:"date"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeGoals int       `json:"home_goals"`
	AwayGoals int       `json:"away_goals"`
}

// Enrichment is the decoded contextual data for a match. Every field is optional.
type Enrichment struct {
	HomeInjuries []Injury     `json:"home_injuries,omitempty"`
	AwayInjuries []Injury     `json:"away_injuries,omitempty"`
	HomeLineup   *Lineup      `json:"home_lineup,omitempty"`
	AwayLineup   *Lineup      `json:"away_lineup,omitempty"`
	Weather      *Weather     `json:"weather,omitempty"`
	HeadToHead   []HeadToHead `json:"head_to_head,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}

// EnrichmentRecord is the stored form: each field is JSON text or NULL.
type EnrichmentRecord struct {
	MatchID      int64
	HomeInjuries *string
	AwayInjuries *string
	HomeLineup   *string
	AwayLineup   *string
	Weather      *string
	HeadToHead   *string
	UpdatedAt    time.Time
}
