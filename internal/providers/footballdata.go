package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

// CompetitionNames maps football-data.org competition codes to display names.
var CompetitionNames = map[string]string{
	"PL":  "Premier League",
	"PD":  "La Liga",
	"SA":  "Serie A",
	"FL1": "Ligue 1",
	"BL1": "Bundesliga",
	"CL":  "UEFA Champions League",
	"EL":  "UEFA Europa League",
}

// DefaultCompetitions stays well under the free plan's competition allowance.
var DefaultCompetitions = []string{"PL", "PD", "SA", "FL1"}

// FootballDataConfig configures the football-data.org client.
type FootballDataConfig struct {
	ClientConfig
	// Token is optional; anonymous requests get a smaller allowance.
	Token        string
	Competitions []string
	MinuteLimit  int
	// RequestDelay spaces consecutive competition requests.
	RequestDelay time.Duration
	Limiter      logic.Limiter
}

// FootballData is the fixtures-only fallback source.
type FootballData struct {
	c            *client
	competitions []string
	delay        time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

var _ logic.FixtureSource = (*FootballData)(nil)

func NewFootballData(cfg FootballDataConfig) *FootballData {
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("X-Auth-Token", cfg.Token)
	}
	competitions := cfg.Competitions
	if len(competitions) == 0 {
		competitions = DefaultCompetitions
	}
	quota := &Quota{Limiter: cfg.Limiter, API: logic.FootballDataAPI, Limit: cfg.MinuteLimit, Window: ratelimit.WindowMinute}

	return &FootballData{
		c:            newClient(logic.FootballDataAPI, cfg.ClientConfig, header, quota),
		competitions: competitions,
		delay:        cfg.RequestDelay,
		sleep:        sleepCtx,
	}
}

func (f *FootballData) Name() string { return logic.FootballDataAPI }

type footballDataMatches struct {
	Matches []footballDataMatch `json:"matches"`
}

type footballDataMatch struct {
	ID       int64            `json:"id"`
	UTCDate  string           `json:"utcDate"`
	Status   string           `json:"status"`
	HomeTeam footballDataTeam `json:"homeTeam"`
	AwayTeam footballDataTeam `json:"awayTeam"`
	Score    struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
	Area struct {
		Name string `json:"name"`
	} `json:"area"`
}

type footballDataTeam struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Crest string `json:"crest"`
}

// Fixtures lists the matches of every configured competition between from
// and to inclusive, ordered by kickoff.
func (f *FootballData) Fixtures(ctx context.Context, from, to time.Time) ([]models.Fixture, error) {
	var out []models.Fixture
	for i, code := range f.competitions {
		if i > 0 && f.delay > 0 {
			if err := f.sleep(ctx, f.delay); err != nil {
				return nil, err
			}
		}

		q := url.Values{}
		q.Set("dateFrom", from.UTC().Format("2006-01-02"))
		q.Set("dateTo", to.UTC().Format("2006-01-02"))

		var resp footballDataMatches
		if err := f.c.getJSON(ctx, "/competitions/"+code+"/matches", q, &resp); err != nil {
			if errors.Is(err, logic.ErrRateLimited) {
				return nil, err
			}
			f.c.logger.Warnw("Competition fixtures unavailable", "competition", code, "error", err)
			continue
		}
		for _, m := range resp.Matches {
			out = append(out, toFootballDataFixture(code, m))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Kickoff.Before(out[j].Kickoff) })
	return out, nil
}

func toFootballDataFixture(code string, m footballDataMatch) models.Fixture {
	kickoff, _ := time.Parse(time.RFC3339, m.UTCDate)
	name, ok := CompetitionNames[code]
	if !ok {
		name = code
	}
	return models.Fixture{
		Provider:   logic.FootballDataAPI,
		ProviderID: m.ID,
		League:     name,
		LeagueID:   code,
		Kickoff:    kickoff.UTC(),
		Status:     logic.ProviderStatus(m.Status),
		Home:       models.FixtureTeam{ProviderID: m.HomeTeam.ID, Name: m.HomeTeam.Name, Crest: m.HomeTeam.Crest},
		Away:       models.FixtureTeam{ProviderID: m.AwayTeam.ID, Name: m.AwayTeam.Name, Crest: m.AwayTeam.Crest},
		HomeScore:  m.Score.FullTime.Home,
		AwayScore:  m.Score.FullTime.Away,
		Country:    m.Area.Name,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
