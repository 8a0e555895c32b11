package logic

import (
	"fmt"
	"strings"

	"github.com/kickoffai/predictions-api/internal/models"
)

// PromptInput is everything the prompt builder reads.
type PromptInput struct {
	Match      *models.Match
	Home       *models.Team
	Away       *models.Team
	HomeStats  *models.AdvancedStats
	AwayStats  *models.AdvancedStats
	Enrichment *models.Enrichment
}

var weatherImpact = map[string]string{
	models.WeatherRain:   "wet and slippery pitch, expect fewer clean chances and more errors",
	models.WeatherSnow:   "heavy pitch, scoring usually drops and technical sides lose their edge",
	models.WeatherWind:   "strong wind, long balls and crosses become unreliable",
	models.WeatherNormal: "no significant weather impact expected",
}

// BuildPrompt renders the instruction text sent to the language model. It is
// a pure function of its input.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	home, away := in.Home, in.Away

	fmt.Fprintf(&b, "You are a professional football analyst. Predict the match %s (home) vs %s (away)", home.Name, away.Name)
	if in.Match.League != "" {
		fmt.Fprintf(&b, " in %s", in.Match.League)
	}
	fmt.Fprintf(&b, ", kickoff %s %s.\n\n", in.Match.Date.Format("2006-01-02"), in.Match.Time)

	b.WriteString("## Team data\n")
	writeTeamSection(&b, home, in.HomeStats, "home")
	writeTeamSection(&b, away, in.AwayStats, "away")

	if e := in.Enrichment; e != nil {
		b.WriteString("## Context\n")
		writeInjuries(&b, home.Name, e.HomeInjuries)
		writeInjuries(&b, away.Name, e.AwayInjuries)
		writeLineup(&b, home.Name, e.HomeLineup)
		writeLineup(&b, away.Name, e.AwayLineup)
		if w := e.Weather; w != nil {
			cat := w.Category()
			fmt.Fprintf(&b, "- Weather: %s (%s), %.0f°C, wind %.1f m/s. Category: %s, %s.\n",
				w.Main, w.Description, w.TempC, w.WindSpeed, cat, weatherImpact[cat])
		} else {
			b.WriteString("- Weather: unknown.\n")
		}
		writeHeadToHead(&b, e.HeadToHead)
		b.WriteString("\n")
	}

	b.WriteString(`## Rules
The predicted score MUST match prediction_1n2:
- "1"  (home win): home goals > away goals
- "X"  (draw): home goals = away goals
- "2"  (away win): away goals > home goals
- "1X" (home win or draw): home goals >= away goals
- "X2" (draw or away win): away goals >= home goals
- "12" (no draw): home goals != away goals
If your confidence in a single outcome ("1", "X" or "2") is below 50%, answer with the double chance
("1X", "X2" or "12") that covers it instead; its confidence is the combined chance of both outcomes.
For a double chance, give the most likely score among its two outcomes.
Treat a high large-win ratio with few narrow wins as possibly unsustainable form, and weigh injuries,
formations, weather and head-to-head explicitly.

## Answer
Reply with JSON only, no prose and no code fences, exactly this shape:
{
  "prediction_1n2": "1" | "X" | "2" | "1X" | "X2" | "12",
  "confidence_1n2": 0-100,
  "predicted_score": "H-A",
  "confidence_score": 0-100,
  "btts": true | false,
  "confidence_btts": 0-100,
  "over_under_2_5": "OVER" | "UNDER",
  "confidence_ou25": 0-100,
  "analysis": "3 to 5 sentences: strengths and weaknesses, weak signals, why the match may follow or break the trends, conclusion"
}
`)
	return b.String()
}

func writeTeamSection(b *strings.Builder, t *models.Team, s *models.AdvancedStats, side string) {
	fmt.Fprintf(b, "### %s (%s)\n", t.Name, side)
	if s == nil || s.Matches == 0 {
		b.WriteString("- No finished matches on record.\n\n")
		return
	}
	tot := s.Totals
	fmt.Fprintf(b, "- Last %d matches: %dW-%dD-%dL, goals %d-%d (%.2f scored, %.2f conceded per match).\n",
		s.Matches, tot.Wins, tot.Draws, tot.Losses, tot.GoalsFor, tot.GoalsAgainst,
		s.Performance.AvgGoalsFor, s.Performance.AvgGoalsAgainst)
	fmt.Fprintf(b, "- At home: %dW-%dD-%dL, goals %d-%d.\n",
		s.Home.Wins, s.Home.Draws, s.Home.Losses, s.Home.GoalsFor, s.Home.GoalsAgainst)
	fmt.Fprintf(b, "- Away: %dW-%dD-%dL, goals %d-%d.\n",
		s.Away.Wins, s.Away.Draws, s.Away.Losses, s.Away.GoalsFor, s.Away.GoalsAgainst)
	fmt.Fprintf(b, "- Recent form (most recent first): %s, %d points, goals %d-%d over the last 5.\n",
		s.Recent.Form, s.Recent.Points, s.Recent.GoalsFor, s.Recent.GoalsAgainst)
	fmt.Fprintf(b, "- Trend: %s (last 10: %d pts, previous 10: %d pts, delta %+d; goals scored delta %+d, conceded delta %+d).\n",
		s.Trend.Direction(), s.Trend.Last10Points, s.Trend.Previous10Points,
		s.Trend.PointsDelta, s.Trend.GoalsForDelta, s.Trend.GoalsAgainstDelta)
	fmt.Fprintf(b, "- Margins: %d narrow wins, %d large wins, %d narrow losses, %d large losses; win quality %.0f%%.\n",
		s.Performance.NarrowWins, s.Performance.LargeWins, s.Performance.NarrowLosses, s.Performance.LargeLosses,
		s.Performance.WinQuality*100)
	if s.Performance.WinQuality >= 0.5 && s.Totals.Wins >= 3 {
		b.WriteString("- Signal: most wins are by 3+ goals, results may be overperforming.\n")
	}
	b.WriteString("\n")
}

func writeInjuries(b *strings.Builder, team string, injuries []models.Injury) {
	if injuries == nil {
		fmt.Fprintf(b, "- %s injuries: unknown.\n", team)
		return
	}
	if len(injuries) == 0 {
		fmt.Fprintf(b, "- %s injuries: none reported.\n", team)
		return
	}
	parts := make([]string, 0, len(injuries))
	for _, inj := range injuries {
		p := inj.Player
		if inj.Type != "" {
			p += " (" + inj.Type + ")"
		}
		parts = append(parts, p)
	}
	fmt.Fprintf(b, "- %s injuries: %s.\n", team, strings.Join(parts, ", "))
}

func writeLineup(b *strings.Builder, team string, l *models.Lineup) {
	if l == nil || l.Formation == "" {
		return
	}
	fmt.Fprintf(b, "- %s probable formation: %s.\n", team, l.Formation)
}

func writeHeadToHead(b *strings.Builder, meetings []models.HeadToHead) {
	if len(meetings) == 0 {
		b.WriteString("- Head-to-head: no recent meetings.\n")
		return
	}
	b.WriteString("- Head-to-head (most recent first):")
	for i, m := range meetings {
		sep := ","
		if i == 0 {
			sep = ""
		}
		fmt.Fprintf(b, "%s %s %d-%d %s", sep, m.HomeTeam, m.HomeGoals, m.AwayGoals, m.AwayTeam)
	}
	b.WriteString(".\n")
}
