package models

import "time"

type PredictionRequest struct {
	MatchID int64 `json:"match_id" validate:"required,gt=0"`
	Force   bool  `json:"force"`
}

type EnrichRequest struct {
	MatchID int64 `json:"match_id" validate:"omitempty,gt=0"`
}

type SyncRequest struct {
	Days     int `json:"days" validate:"omitempty,min=1,max=14"`
	PastDays int `json:"past_days" validate:"omitempty,min=0,max=14"`
}

// Probabilities is the three-way split exposed to callers.
type Probabilities struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// PredictionView is the rendered prediction returned by the API.
type PredictionView struct {
	MatchID         int64            `json:"match_id"`
	Prediction1N2   Outcome          `json:"prediction_1n2"`
	Confidence1N2   int              `json:"confidence_1n2"`
	PredictedScore  string           `json:"predicted_score"`
	ConfidenceScore int              `json:"confidence_score"`
	BTTS            bool             `json:"btts"`
	ConfidenceBTTS  int              `json:"confidence_btts"`
	OverUnder25     string           `json:"over_under_2_5"`
	ConfidenceOU25  int              `json:"confidence_ou25"`
	Analysis        string           `json:"analysis"`
	Probabilities   Probabilities    `json:"probabilities"`
	Source          PredictionSource `json:"source"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type TeamView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Crest     string `json:"crest,omitempty"`
}

type ScoreView struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// MatchView is a match as listed by the API.
type MatchView struct {
	ID         int64           `json:"id"`
	Date       string          `json:"date"`
	Time       string          `json:"time"`
	League     string          `json:"league"`
	Status     MatchStatus     `json:"status"`
	Venue      string          `json:"venue,omitempty"`
	HomeTeam   TeamView        `json:"home_team"`
	AwayTeam   TeamView        `json:"away_team"`
	Score      *ScoreView      `json:"score,omitempty"`
	Prediction *PredictionView `json:"prediction,omitempty"`
}

// HistoryDay groups past predicted matches by kickoff date.
type HistoryDay struct {
	Date    string      `json:"date"`
	Matches []MatchView `json:"matches"`
}

type BulkRefreshResult struct {
	RunID     string   `json:"run_id"`
	Total     int      `json:"total"`
	Generated int      `json:"generated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type EnrichResult struct {
	Enriched int `json:"enriched"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type SyncResult struct {
	Provider string `json:"provider"`
	Fetched  int    `json:"fetched"`
	Upserted int    `json:"upserted"`
	Skipped  int    `json:"skipped"`
}

type SyncResponse struct {
	Upcoming SyncResult  `json:"upcoming"`
	Past     *SyncResult `json:"past,omitempty"`
}
