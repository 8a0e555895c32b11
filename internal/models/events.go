package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEventType names the events published on the predictions topic.
type PredictionEventType string

const (
	EventPredictionGenerated PredictionEventType = "prediction.generated"
)

// PredictionEvent is published every time a prediction is (re)computed.
type PredictionEvent struct {
	EventID        uuid.UUID           `json:"event_id"`
	Type           PredictionEventType `json:"type"`
	MatchID        int64               `json:"match_id"`
	Outcome        Outcome             `json:"outcome"`
	PredictedScore string              `json:"predicted_score"`
	HomeWinProb    float64             `json:"home_win_prob"`
	DrawProb       float64             `json:"draw_prob"`
	AwayWinProb    float64             `json:"away_win_prob"`
	Source         PredictionSource    `json:"source"`
	LatencyMs      int64               `json:"latency_ms"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// NewPredictionEvent builds the generated-event for p.
func NewPredictionEvent(p *Prediction, latency time.Duration) PredictionEvent {
	return PredictionEvent{
		EventID:        uuid.New(),
		Type:           EventPredictionGenerated,
		MatchID:        p.MatchID,
		Outcome:        p.Outcome,
		PredictedScore: p.PredictedScore,
		HomeWinProb:    p.HomeWinProb,
		DrawProb:       p.DrawProb,
		AwayWinProb:    p.AwayWinProb,
		Source:         p.Source,
		LatencyMs:      latency.Milliseconds(),
		OccurredAt:     p.UpdatedAt,
	}
}
