package logic

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kickoffai/predictions-api/internal/models"
)

// DoubleChanceThreshold is the confidence (percent) below which a single
// outcome is widened to a double chance.
const DoubleChanceThreshold = 50

// ParseScore reads an "H-A" score. Surrounding spaces are tolerated.
func ParseScore(s string) (home, away int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid score %q", s)
	}
	home, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid home goals in %q: %w", s, err)
	}
	away, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid away goals in %q: %w", s, err)
	}
	if home < 0 || away < 0 {
		return 0, 0, fmt.Errorf("negative goals in %q", s)
	}
	return home, away, nil
}

// FormatScore renders a score as "H-A".
func FormatScore(home, away int) string {
	return fmt.Sprintf("%d-%d", home, away)
}

// RepairScore returns the nearest score satisfying outcome. Scores that
// already satisfy it are returned unchanged. A violated draw or double chance
// collapses both sides to their rounded average.
func RepairScore(outcome models.Outcome, home, away int) (int, int) {
	if outcome.Allows(home, away) {
		return home, away
	}
	avg := int(math.Round(float64(home+away) / 2))

	switch outcome {
	case models.OutcomeHome:
		return max(home, away) + 1, away
	case models.OutcomeAway:
		return home, max(home, away) + 1
	case models.OutcomeDraw, models.OutcomeHomeOrDraw, models.OutcomeDrawOrAway:
		return avg, avg
	case models.OutcomeHomeOrAway:
		// tie: lean on home advantage
		return home + 1, away
	}
	return home, away
}

// Normalize scales the three probabilities to sum to 1. A degenerate input
// (non-positive or non-finite sum) becomes an even split.
func Normalize(home, draw, away float64) (float64, float64, float64) {
	home, draw, away = math.Max(0, home), math.Max(0, draw), math.Max(0, away)
	sum := home + draw + away
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	return home / sum, draw / sum, away / sum
}

// Probabilities maps an outcome class and its confidence (percent) onto
// normalized home/draw/away probabilities.
func Probabilities(outcome models.Outcome, confidence int) (home, draw, away float64) {
	c := math.Min(1, math.Max(0, float64(confidence)/100))
	rest := (1 - c) / 2

	switch outcome {
	case models.OutcomeHome:
		home, draw, away = c, rest, rest
	case models.OutcomeAway:
		home, draw, away = rest, rest, c
	case models.OutcomeHomeOrDraw:
		home, draw, away = c*0.6, c*0.4, 1-c
	case models.OutcomeDrawOrAway:
		home, draw, away = 1-c, c*0.4, c*0.6
	case models.OutcomeHomeOrAway:
		home, draw, away = c*0.5, 1-c, c*0.5
	default:
		home, draw, away = rest, c, rest
	}
	return Normalize(home, draw, away)
}

// DetermineOutcome picks the displayed class from three probabilities. When
// the strongest single result is below DoubleChanceThreshold percent the most
// likely double chance is returned instead, with its combined confidence.
func DetermineOutcome(home, draw, away float64) (models.Outcome, int) {
	confidence := int(math.Round(math.Max(home, math.Max(draw, away)) * 100))

	if confidence < DoubleChanceThreshold {
		homeOrDraw, drawOrAway, homeOrAway := home+draw, draw+away, home+away
		switch {
		case homeOrDraw >= drawOrAway && homeOrDraw >= homeOrAway:
			return models.OutcomeHomeOrDraw, int(math.Round(homeOrDraw * 100))
		case drawOrAway >= homeOrDraw && drawOrAway >= homeOrAway:
			return models.OutcomeDrawOrAway, int(math.Round(drawOrAway * 100))
		default:
			return models.OutcomeHomeOrAway, int(math.Round(homeOrAway * 100))
		}
	}

	switch {
	case home > draw && home > away:
		return models.OutcomeHome, confidence
	case away > draw && away > home:
		return models.OutcomeAway, confidence
	}
	return models.OutcomeDraw, confidence
}

// WidenLowConfidence turns a single outcome whose confidence is below
// DoubleChanceThreshold into the double chance that adds the likelier of the
// two remaining results, judged by the reference probabilities. The returned
// confidence adds the share the single-outcome mapping gives that result.
// Double chances and confident singles are returned unchanged.
func WidenLowConfidence(outcome models.Outcome, confidence int, refHome, refDraw, refAway float64) (models.Outcome, int) {
	if outcome.IsDoubleChance() || confidence >= DoubleChanceThreshold {
		return outcome, confidence
	}
	widened := confidence + int(math.Round(float64(100-confidence)/2))

	switch outcome {
	case models.OutcomeHome:
		if refAway > refDraw {
			return models.OutcomeHomeOrAway, widened
		}
		return models.OutcomeHomeOrDraw, widened
	case models.OutcomeAway:
		if refHome > refDraw {
			return models.OutcomeHomeOrAway, widened
		}
		return models.OutcomeDrawOrAway, widened
	}
	if refAway > refHome {
		return models.OutcomeDrawOrAway, widened
	}
	return models.OutcomeHomeOrDraw, widened
}

// FormatPrediction renders a stored prediction for the API. A stored double
// chance is kept; otherwise the displayed class is derived from the stored
// probabilities so low-confidence singles are shown as double chances.
func FormatPrediction(p *models.Prediction) *models.PredictionView {
	outcome, confidence := DetermineOutcome(p.HomeWinProb, p.DrawProb, p.AwayWinProb)
	if p.Outcome.IsDoubleChance() {
		outcome = p.Outcome
		confidence = int(math.Round(p.Confidence * 100))
	}

	ou := models.Under25
	if p.Over25Prob > 0.5 {
		ou = models.Over25
	}

	return &models.PredictionView{
		MatchID:         p.MatchID,
		Prediction1N2:   outcome,
		Confidence1N2:   confidence,
		PredictedScore:  p.PredictedScore,
		ConfidenceScore: p.ConfidenceScore,
		BTTS:            p.BTTSProb > 0.5,
		ConfidenceBTTS:  int(math.Round(p.BTTSProb * 100)),
		OverUnder25:     ou,
		ConfidenceOU25:  int(math.Round(p.Over25Prob * 100)),
		Analysis:        p.Analysis,
		Probabilities: models.Probabilities{
			Home: p.HomeWinProb,
			Draw: p.DrawProb,
			Away: p.AwayWinProb,
		},
		Source:    p.Source,
		UpdatedAt: p.UpdatedAt,
	}
}

func clampPercent(v float64) int {
	return int(math.Round(math.Min(100, math.Max(0, v))))
}
