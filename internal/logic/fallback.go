package logic

import (
	"fmt"
	"math"

	"github.com/kickoffai/predictions-api/internal/models"
)

// BasicStats is the expected-goals model both generation paths lean on.
type BasicStats struct {
	HomeExpectedGoals float64
	AwayExpectedGoals float64
	HomeWinProb       float64
	DrawProb          float64
	AwayWinProb       float64
	BTTSProb          float64
	Over25Prob        float64
}

// ComputeBasicStats blends each side's scoring rate with the opponent's
// conceding rate. The 1N2 split starts from a 0.4 base for the side with the
// higher expected goals plus 0.1 per goal of advantage, 0.3 otherwise, and
// gives the remainder to the draw. BTTS and over 2.5 use independent Poisson
// scoring with the same expected goals.
func ComputeBasicStats(home, away models.TeamRecord) BasicStats {
	homePlayed := float64(max(1, home.Played()))
	awayPlayed := float64(max(1, away.Played()))

	homeScored := float64(home.GoalsFor) / homePlayed
	homeConceded := float64(home.GoalsAgainst) / homePlayed
	awayScored := float64(away.GoalsFor) / awayPlayed
	awayConceded := float64(away.GoalsAgainst) / awayPlayed

	bs := BasicStats{
		HomeExpectedGoals: (homeScored + awayConceded) / 2,
		AwayExpectedGoals: (awayScored + homeConceded) / 2,
	}

	bs.HomeWinProb, bs.AwayWinProb = 0.3, 0.3
	gap := bs.HomeExpectedGoals - bs.AwayExpectedGoals
	if gap > 0 {
		bs.HomeWinProb = math.Min(0.7, 0.4+gap*0.1)
	} else if gap < 0 {
		bs.AwayWinProb = math.Min(0.7, 0.4-gap*0.1)
	}
	bs.DrawProb = 1 - bs.HomeWinProb - bs.AwayWinProb

	bs.BTTSProb = (1 - math.Exp(-bs.HomeExpectedGoals)) * (1 - math.Exp(-bs.AwayExpectedGoals))
	bs.Over25Prob = 1 - poissonCDF(2, bs.HomeExpectedGoals+bs.AwayExpectedGoals)
	return bs
}

// poissonCDF returns P(X <= k) for X ~ Poisson(lambda).
func poissonCDF(k int, lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	term := math.Exp(-lambda)
	sum := term
	for i := 1; i <= k; i++ {
		term *= lambda / float64(i)
		sum += term
	}
	return math.Min(1, sum)
}

// FallbackForecast derives a complete forecast from team records alone. It
// has no failure mode.
func FallbackForecast(homeTeam, awayTeam *models.Team) models.Forecast {
	bs := ComputeBasicStats(homeTeam.TeamRecord, awayTeam.TeamRecord)

	outcome := models.OutcomeDraw
	switch {
	case bs.HomeWinProb > bs.AwayWinProb && bs.HomeWinProb > bs.DrawProb:
		outcome = models.OutcomeHome
	case bs.AwayWinProb > bs.HomeWinProb && bs.AwayWinProb > bs.DrawProb:
		outcome = models.OutcomeAway
	}

	h, a := RepairScore(outcome,
		int(math.Round(bs.HomeExpectedGoals)),
		int(math.Round(bs.AwayExpectedGoals)))

	maxProb := math.Max(bs.HomeWinProb, math.Max(bs.DrawProb, bs.AwayWinProb))
	confidence := int(math.Round(math.Min(85, math.Max(45, maxProb*100))))

	ou := models.Under25
	if bs.Over25Prob > 0.5 {
		ou = models.Over25
	}

	return models.Forecast{
		Outcome:         outcome,
		Confidence:      confidence,
		PredictedScore:  FormatScore(h, a),
		ConfidenceScore: max(35, min(50, (h+a)*10)),
		BTTS:            bs.BTTSProb > 0.5,
		ConfidenceBTTS:  clampPercent(bs.BTTSProb * 100),
		OverUnder25:     ou,
		ConfidenceOU25:  clampPercent(bs.Over25Prob * 100),
		Analysis:        fallbackAnalysis(homeTeam, awayTeam, outcome),
	}
}

func fallbackAnalysis(home, away *models.Team, outcome models.Outcome) string {
	homePlayed := float64(max(1, home.Played()))
	awayPlayed := float64(max(1, away.Played()))
	homeConceded := float64(home.GoalsAgainst) / homePlayed
	awayConceded := float64(away.GoalsAgainst) / awayPlayed
	record := func(t *models.Team) string {
		return fmt.Sprintf("%dW-%dD-%dL", t.Wins, t.Draws, t.Losses)
	}

	switch outcome {
	case models.OutcomeHome:
		prefix, warning := "", ""
		if home.GoalsFor < home.GoalsAgainst {
			prefix = "Despite mixed numbers, "
		}
		if homeConceded > 1.5 {
			warning = fmt.Sprintf(" Its own defence concedes %.1f per match.", homeConceded)
		}
		return fmt.Sprintf("%s%s has home advantage and the better record (%s).%s %s shows defensive weakness (%.1f goals conceded per match). Prediction: home win.",
			prefix, home.Name, record(home), warning, away.Name, awayConceded)
	case models.OutcomeAway:
		prefix := ""
		if away.GoalsFor < away.GoalsAgainst {
			prefix = "Possible surprise: "
		}
		return fmt.Sprintf("%s%s is more efficient (%s) despite travelling. %s struggles defensively (%.1f goals conceded per match) and home advantage may not be enough. Prediction: away win.",
			prefix, away.Name, record(away), home.Name, homeConceded)
	}
	prefix := ""
	if homeConceded < 1 && awayConceded < 1 {
		prefix = "Tight game between two solid defences. "
	}
	return fmt.Sprintf("%sBalanced match between %s (%s) and %s (%s). The numbers are close and home advantage may be neutralised. Prediction: draw.",
		prefix, home.Name, record(home), away.Name, record(away))
}
