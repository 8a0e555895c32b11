package models

// TeamRecord is the cumulative win/draw/loss and goal tally written back onto a Team.
type TeamRecord struct {
	Wins         int `json:"wins"`
	Draws        int `json:"draws"`
	Losses       int `json:"losses"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
}

// Played returns the number of matches behind the record.
func (r TeamRecord) Played() int {
	return r.Wins + r.Draws + r.Losses
}

// Team is a club known to the store.
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ShortName  string `json:"short_name"`
	Crest      string `json:"crest,omitempty"`
	ProviderID *int64 `json:"provider_id,omitempty"`
	League     string `json:"league,omitempty"`
	TeamRecord
}
