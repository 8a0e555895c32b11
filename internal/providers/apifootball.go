package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

// DefaultAPIFootballLeagues are the competitions synced from API-Football.
var DefaultAPIFootballLeagues = []int{
	39,  // Premier League
	140, // La Liga
	135, // Serie A
	61,  // Ligue 1
	78,  // Bundesliga
	2,   // UEFA Champions League
	3,   // UEFA Europa League
}

const rapidAPIHost = "api-football-v1.p.rapidapi.com"

// APIFootballConfig configures the API-Football client.
type APIFootballConfig struct {
	ClientConfig
	Key string
	// RapidAPI selects the x-rapidapi-key header style instead of x-apisports-key.
	RapidAPI   bool
	Season     int
	Leagues    []int
	DailyLimit int
	Limiter    logic.Limiter
}

// APIFootball serves fixtures, injuries, lineups and head-to-head results.
type APIFootball struct {
	c       *client
	key     string
	season  int
	leagues []int
}

var (
	_ logic.FixtureSource = (*APIFootball)(nil)
	_ logic.SportsData    = (*APIFootball)(nil)
)

func NewAPIFootball(cfg APIFootballConfig) *APIFootball {
	header := http.Header{}
	if cfg.RapidAPI {
		header.Set("x-rapidapi-key", cfg.Key)
		header.Set("x-rapidapi-host", rapidAPIHost)
	} else {
		header.Set("x-apisports-key", cfg.Key)
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	leagues := cfg.Leagues
	if len(leagues) == 0 {
		leagues = DefaultAPIFootballLeagues
	}
	quota := &Quota{Limiter: cfg.Limiter, API: logic.APIFootballAPI, Limit: cfg.DailyLimit, Window: ratelimit.WindowDay}

	return &APIFootball{
		c:       newClient(logic.APIFootballAPI, cfg.ClientConfig, header, quota),
		key:     cfg.Key,
		season:  cfg.Season,
		leagues: leagues,
	}
}

func (a *APIFootball) Name() string { return logic.APIFootballAPI }

type apiFootballEnvelope[T any] struct {
	Errors   any `json:"errors"`
	Results  int `json:"results"`
	Response []T `json:"response"`
}

type apiFixture struct {
	Fixture struct {
		ID    int64  `json:"id"`
		Date  string `json:"date"`
		Venue struct {
			Name    string `json:"name"`
			City    string `json:"city"`
			Country string `json:"country"`
		} `json:"venue"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"league"`
	Teams struct {
		Home apiTeam `json:"home"`
		Away apiTeam `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

type apiTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type apiInjury struct {
	Player struct {
		Name string `json:"name"`
	} `json:"player"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type apiLineup struct {
	Team  apiTeam `json:"team"`
	Coach struct {
		Name string `json:"name"`
	} `json:"coach"`
	Formation string `json:"formation"`
	StartXI   []struct {
		Player struct {
			Name   string `json:"name"`
			Number int    `json:"number"`
			Pos    string `json:"pos"`
		} `json:"player"`
	} `json:"startXI"`
}

// Fixtures lists every fixture of the configured leagues between from and to
// inclusive, ordered by kickoff. A failing league is logged and skipped
// unless the failure means the provider cannot be used at all.
func (a *APIFootball) Fixtures(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
	if a.key == "" {
		return nil, fmt.Errorf("api-football key not configured: %w", logic.ErrProviderUnavailable)
	}
	season := a.season
	if season == 0 {
		season = seasonOf(from)
	}

	var out []models.Fixture
	for _, league := range a.leagues {
		q := url.Values{}
		q.Set("league", strconv.Itoa(league))
		q.Set("season", strconv.Itoa(season))
		q.Set("from", from.UTC().Format("2006-01-02"))
		q.Set("to", to.UTC().Format("2006-01-02"))

		var env apiFootballEnvelope[apiFixture]
		if err := a.c.getJSON(ctx, "/fixtures", q, &env); err != nil {
			if errors.Is(err, logic.ErrRateLimited) || errors.Is(err, logic.ErrProviderUnavailable) {
				return nil, err
			}
			a.c.logger.Warnw("League fixtures unavailable", "league", league, "error", err)
			continue
		}
		logProviderErrors(a.c, "/fixtures", env.Errors)
		for _, f := range env.Response {
			out = append(out, a.toFixture(f))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Kickoff.Before(out[j].Kickoff) })
	return out, nil
}

func (a *APIFootball) toFixture(f apiFixture) models.Fixture {
	kickoff, _ := time.Parse(time.RFC3339, f.Fixture.Date)
	country := f.Fixture.Venue.Country
	if country == "" {
		country = f.League.Country
	}
	return models.Fixture{
		Provider:   logic.APIFootballAPI,
		ProviderID: f.Fixture.ID,
		League:     f.League.Name,
		LeagueID:   strconv.FormatInt(f.League.ID, 10),
		Kickoff:    kickoff.UTC(),
		Status:     logic.ProviderStatus(f.Fixture.Status.Short),
		Home:       models.FixtureTeam{ProviderID: f.Teams.Home.ID, Name: f.Teams.Home.Name, Crest: f.Teams.Home.Logo},
		Away:       models.FixtureTeam{ProviderID: f.Teams.Away.ID, Name: f.Teams.Away.Name, Crest: f.Teams.Away.Logo},
		HomeScore:  f.Goals.Home,
		AwayScore:  f.Goals.Away,
		Venue:      f.Fixture.Venue.Name,
		City:       f.Fixture.Venue.City,
		Country:    country,
	}
}

// Injuries returns the current-season injuries and suspensions of a team.
func (a *APIFootball) Injuries(ctx context.Context, teamID int64) ([]models.Injury, error) {
	if a.key == "" {
		return nil, logic.ErrProviderUnavailable
	}
	season := a.season
	if season == 0 {
		season = seasonOf(time.Now())
	}
	q := url.Values{}
	q.Set("team", strconv.FormatInt(teamID, 10))
	q.Set("season", strconv.Itoa(season))

	var env apiFootballEnvelope[apiInjury]
	if err := a.c.getJSON(ctx, "/injuries", q, &env); err != nil {
		return nil, err
	}
	logProviderErrors(a.c, "/injuries", env.Errors)

	out := make([]models.Injury, 0, len(env.Response))
	for _, inj := range env.Response {
		out = append(out, models.Injury{Player: inj.Player.Name, Type: inj.Type, Reason: inj.Reason})
	}
	return out, nil
}

// Lineups returns the team sheets of a fixture. Both are nil until published.
func (a *APIFootball) Lineups(ctx context.Context, fixtureID int64) (*models.Lineup, *models.Lineup, error) {
	if a.key == "" {
		return nil, nil, logic.ErrProviderUnavailable
	}
	q := url.Values{}
	q.Set("fixture", strconv.FormatInt(fixtureID, 10))

	var env apiFootballEnvelope[apiLineup]
	if err := a.c.getJSON(ctx, "/fixtures/lineups", q, &env); err != nil {
		return nil, nil, err
	}
	logProviderErrors(a.c, "/fixtures/lineups", env.Errors)

	var home, away *models.Lineup
	if len(env.Response) > 0 {
		home = toLineup(env.Response[0])
	}
	if len(env.Response) > 1 {
		away = toLineup(env.Response[1])
	}
	return home, away, nil
}

func toLineup(l apiLineup) *models.Lineup {
	out := &models.Lineup{Formation: l.Formation, Coach: l.Coach.Name}
	for _, p := range l.StartXI {
		out.StartXI = append(out.StartXI, models.LineupPlayer{
			Name:     p.Player.Name,
			Number:   p.Player.Number,
			Position: p.Player.Pos,
		})
	}
	return out
}

// HeadToHead returns up to last finished meetings, most recent first.
func (a *APIFootball) HeadToHead(ctx context.Context, homeTeamID, awayTeamID int64, last int) ([]models.HeadToHead, error) {
	if a.key == "" {
		return nil, logic.ErrProviderUnavailable
	}
	if last <= 0 {
		last = 5
	}
	q := url.Values{}
	q.Set("h2h", fmt.Sprintf("%d-%d", homeTeamID, awayTeamID))
	q.Set("last", strconv.Itoa(last))

	var env apiFootballEnvelope[apiFixture]
	if err := a.c.getJSON(ctx, "/fixtures/headtohead", q, &env); err != nil {
		return nil, err
	}
	logProviderErrors(a.c, "/fixtures/headtohead", env.Errors)

	out := make([]models.HeadToHead, 0, len(env.Response))
	for _, f := range env.Response {
		if f.Goals.Home == nil || f.Goals.Away == nil {
			continue
		}
		date, _ := time.Parse(time.RFC3339, f.Fixture.Date)
		out = append(out, models.HeadToHead{
			Date:      date.UTC(),
			HomeTeam:  f.Teams.Home.Name,
			AwayTeam:  f.Teams.Away.Name,
			HomeGoals: *f.Goals.Home,
			AwayGoals: *f.Goals.Away,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// logProviderErrors reports the errors field API-Football fills on a 200
// reply. It is an empty array on success and an object otherwise.
func logProviderErrors(c *client, path string, errs any) {
	switch v := errs.(type) {
	case nil:
		return
	case []any:
		if len(v) == 0 {
			return
		}
	case map[string]any:
		if len(v) == 0 {
			return
		}
	}
	c.logger.Warnw("Provider reported errors", "path", path, "errors", strings.TrimSpace(fmt.Sprint(errs)))
}
