package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is a 1N2 market class, single or double chance.
type Outcome string

const (
	OutcomeHome       Outcome = "1"
	OutcomeDraw       Outcome = "X"
	OutcomeAway       Outcome = "2"
	OutcomeHomeOrDraw Outcome = "1X"
	OutcomeDrawOrAway Outcome = "X2"
	OutcomeHomeOrAway Outcome = "12"
)

// Outcomes lists every valid class.
var Outcomes = []Outcome{
	OutcomeHome, OutcomeDraw, OutcomeAway,
	OutcomeHomeOrDraw, OutcomeDrawOrAway, OutcomeHomeOrAway,
}

// Valid reports whether o is one of the six known classes.
func (o Outcome) Valid() bool {
	for _, v := range Outcomes {
		if o == v {
			return true
		}
	}
	return false
}

// IsDoubleChance reports whether o spans two of the three results.
func (o Outcome) IsDoubleChance() bool {
	return o == OutcomeHomeOrDraw || o == OutcomeDrawOrAway || o == OutcomeHomeOrAway
}

// Allows reports whether the final score home-away satisfies o.
func (o Outcome) Allows(home, away int) bool {
	switch o {
	case OutcomeHome:
		return home > away
	case OutcomeDraw:
		return home == away
	case OutcomeAway:
		return away > home
	case OutcomeHomeOrDraw:
		return home >= away
	case OutcomeDrawOrAway:
		return away >= home
	case OutcomeHomeOrAway:
		return home != away
	}
	return false
}

// PredictionSource records which path produced a prediction.
type PredictionSource string

const (
	SourceModel    PredictionSource = "model"
	SourceFallback PredictionSource = "fallback"
)

// Prediction is the persisted forecast for one match.
type Prediction struct {
	ID              uuid.UUID        `json:"id"`
	MatchID         int64            `json:"match_id"`
	HomeWinProb     float64          `json:"home_win_prob"`
	DrawProb        float64          `json:"draw_prob"`
	AwayWinProb     float64          `json:"away_win_prob"`
	PredictedScore  string           `json:"predicted_score"`
	ConfidenceScore int              `json:"confidence_score"`
	BTTSProb        float64          `json:"btts_prob"`
	Over25Prob      float64          `json:"over25_prob"`
	Analysis        string           `json:"analysis"`
	Confidence      float64          `json:"confidence"`
	Outcome         Outcome          `json:"outcome"`
	Source          PredictionSource `json:"source"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// FreshAt reports whether p is still within ttl at now.
func (p *Prediction) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.UpdatedAt) <= ttl
}

// Forecast is the fixed-shape record produced by either generation path,
// before it is mapped onto probabilities and persisted.
type Forecast struct {
	Outcome         Outcome `json:"prediction_1n2"`
	Confidence      int     `json:"confidence_1n2"`
	PredictedScore  string  `json:"predicted_score"`
	ConfidenceScore int     `json:"confidence_score"`
	BTTS            bool    `json:"btts"`
	ConfidenceBTTS  int     `json:"confidence_btts"`
	OverUnder25     string  `json:"over_under_2_5"`
	ConfidenceOU25  int     `json:"confidence_ou25"`
	Analysis        string  `json:"analysis"`
}

// ModelOutput is the raw reply of the text-generation model. Pointer fields
// distinguish "missing" from zero values.
type ModelOutput struct {
	Prediction1N2   string   `json:"prediction_1n2"`
	Confidence1N2   *float64 `json:"confidence_1n2"`
	PredictedScore  string   `json:"predicted_score"`
	ConfidenceScore *float64 `json:"confidence_score"`
	BTTS            *bool    `json:"btts"`
	ConfidenceBTTS  *float64 `json:"confidence_btts"`
	OverUnder25     string   `json:"over_under_2_5"`
	ConfidenceOU25  *float64 `json:"confidence_ou25"`
	Analysis        string   `json:"analysis"`
}

// Over/under labels used in Forecast.OverUnder25.
const (
	Over25  = "OVER"
	Under25 = "UNDER"
)
