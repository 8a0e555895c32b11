package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

type stubLimiter struct {
	allow bool
	calls []string
}

func (s *stubLimiter) TryConsume(ctx context.Context, api string, limit int, window ratelimit.Window) bool {
	s.calls = append(s.calls, api+":"+string(window))
	return s.allow
}

func (s *stubLimiter) CurrentUsage(ctx context.Context, api string, window ratelimit.Window) int64 {
	return 0
}

func fastClient(url string) ClientConfig {
	return ClientConfig{BaseURL: url, Backoff: time.Millisecond, MaxRetries: 2}
}

var day = time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

const apiFootballFixtures = `{
  "errors": [],
  "results": 2,
  "response": [
    {
      "fixture": {"id": 902, "date": "2025-03-09T16:30:00+00:00",
        "venue": {"name": "Anfield", "city": "Liverpool"}, "status": {"short": "NS"}},
      "league": {"id": 39, "name": "Premier League", "country": "England"},
      "teams": {"home": {"id": 40, "name": "Liverpool", "logo": "l.png"}, "away": {"id": 49, "name": "Chelsea", "logo": "c.png"}},
      "goals": {"home": null, "away": null}
    },
    {
      "fixture": {"id": 901, "date": "2025-03-08T12:30:00+00:00",
        "venue": {"name": "Emirates Stadium", "city": "London"}, "status": {"short": "FT"}},
      "league": {"id": 39, "name": "Premier League", "country": "England"},
      "teams": {"home": {"id": 42, "name": "Arsenal"}, "away": {"id": 47, "name": "Tottenham"}},
      "goals": {"home": 2, "away": 1}
    }
  ]
}`

func TestAPIFootballFixtures(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fixtures" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-apisports-key")
		io.WriteString(w, apiFootballFixtures)
	}))
	defer srv.Close()

	limiter := &stubLimiter{allow: true}
	api := NewAPIFootball(APIFootballConfig{
		ClientConfig: fastClient(srv.URL),
		Key:          "secret",
		Season:       2024,
		Leagues:      []int{39},
		DailyLimit:   100,
		Limiter:      limiter,
	})

	fixtures, err := api.Fixtures(context.Background(), day, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Fixtures: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("x-apisports-key = %q", gotKey)
	}
	for _, want := range []string{"league=39", "season=2024", "from=2025-03-08", "to=2025-03-15"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %s", gotQuery, want)
		}
	}
	if len(limiter.calls) != 1 || limiter.calls[0] != "api-football:day" {
		t.Errorf("quota calls = %v", limiter.calls)
	}
	if len(fixtures) != 2 {
		t.Fatalf("got %d fixtures", len(fixtures))
	}

	first := fixtures[0]
	if first.ProviderID != 901 {
		t.Errorf("fixtures not ordered by kickoff: first = %d", first.ProviderID)
	}
	if first.Status != models.StatusFinished || first.HomeScore == nil || *first.HomeScore != 2 {
		t.Errorf("finished fixture = %+v", first)
	}
	if first.LeagueID != "39" || first.League != "Premier League" || first.Country != "England" {
		t.Errorf("league mapping = %+v", first)
	}
	second := fixtures[1]
	if second.Status != models.StatusScheduled || second.HomeScore != nil {
		t.Errorf("scheduled fixture = %+v", second)
	}
	if second.Home.Crest != "l.png" || second.City != "Liverpool" || second.Venue != "Anfield" {
		t.Errorf("team/venue mapping = %+v", second)
	}
}

func TestAPIFootballRapidAPIHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-rapidapi-key") != "rk" || r.Header.Get("x-rapidapi-host") == "" {
			t.Errorf("headers = %v", r.Header)
		}
		if r.Header.Get("x-apisports-key") != "" {
			t.Error("x-apisports-key should not be sent")
		}
		io.WriteString(w, `{"response": []}`)
	}))
	defer srv.Close()

	api := NewAPIFootball(APIFootballConfig{ClientConfig: fastClient(srv.URL), Key: "rk", RapidAPI: true})
	if _, err := api.Injuries(context.Background(), 40); err != nil {
		t.Fatalf("Injuries: %v", err)
	}
}

func TestAPIFootballUnavailable(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	t.Run("no key", func(t *testing.T) {
		api := NewAPIFootball(APIFootballConfig{ClientConfig: fastClient(srv.URL)})
		if _, err := api.Fixtures(context.Background(), day, day); !errors.Is(err, logic.ErrProviderUnavailable) {
			t.Errorf("err = %v, want ErrProviderUnavailable", err)
		}
	})

	t.Run("quota exhausted", func(t *testing.T) {
		api := NewAPIFootball(APIFootballConfig{
			ClientConfig: fastClient(srv.URL),
			Key:          "k",
			Limiter:      &stubLimiter{allow: false},
		})
		if _, err := api.Fixtures(context.Background(), day, day); !errors.Is(err, logic.ErrRateLimited) {
			t.Errorf("err = %v, want ErrRateLimited", err)
		}
	})

	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("upstream hit %d times", n)
	}
}

func TestAPIFootballEnrichment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/injuries":
			io.WriteString(w, `{"response": [{"player": {"name": "M. Salah"}, "type": "Missing Fixture", "reason": "Hamstring"}]}`)
		case "/fixtures/lineups":
			io.WriteString(w, `{"response": [
			  {"formation": "4-3-3", "coach": {"name": "A. Slot"}, "startXI": [{"player": {"name": "Alisson", "number": 1, "pos": "G"}}]},
			  {"formation": "4-2-3-1", "coach": {"name": "E. Maresca"}, "startXI": []}
			]}`)
		case "/fixtures/headtohead":
			if r.URL.Query().Get("h2h") != "40-49" || r.URL.Query().Get("last") != "5" {
				t.Errorf("h2h query = %s", r.URL.RawQuery)
			}
			io.WriteString(w, `{"response": [
			  {"fixture": {"date": "2023-10-01T15:00:00+00:00"}, "teams": {"home": {"name": "Chelsea"}, "away": {"name": "Liverpool"}}, "goals": {"home": 1, "away": 1}},
			  {"fixture": {"date": "2024-10-01T15:00:00+00:00"}, "teams": {"home": {"name": "Liverpool"}, "away": {"name": "Chelsea"}}, "goals": {"home": 2, "away": 0}},
			  {"fixture": {"date": "2025-05-01T15:00:00+00:00"}, "teams": {"home": {"name": "Liverpool"}, "away": {"name": "Chelsea"}}, "goals": {"home": null, "away": null}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api := NewAPIFootball(APIFootballConfig{ClientConfig: fastClient(srv.URL), Key: "k", Season: 2024})
	ctx := context.Background()

	injuries, err := api.Injuries(ctx, 40)
	if err != nil || len(injuries) != 1 || injuries[0].Player != "M. Salah" || injuries[0].Reason != "Hamstring" {
		t.Errorf("Injuries = %+v, %v", injuries, err)
	}

	home, away, err := api.Lineups(ctx, 902)
	if err != nil {
		t.Fatalf("Lineups: %v", err)
	}
	if home == nil || home.Formation != "4-3-3" || home.Coach != "A. Slot" || len(home.StartXI) != 1 || home.StartXI[0].Position != "G" {
		t.Errorf("home lineup = %+v", home)
	}
	if away == nil || away.Formation != "4-2-3-1" {
		t.Errorf("away lineup = %+v", away)
	}

	h2h, err := api.HeadToHead(ctx, 40, 49, 0)
	if err != nil {
		t.Fatalf("HeadToHead: %v", err)
	}
	if len(h2h) != 2 {
		t.Fatalf("unplayed meeting should be skipped, got %d", len(h2h))
	}
	if h2h[0].HomeGoals != 2 || h2h[1].HomeTeam != "Chelsea" {
		t.Errorf("meetings not most recent first: %+v", h2h)
	}
}

func TestAPIFootballLineupsNotPublished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errors": [], "response": []}`)
	}))
	defer srv.Close()

	api := NewAPIFootball(APIFootballConfig{ClientConfig: fastClient(srv.URL), Key: "k"})
	home, away, err := api.Lineups(context.Background(), 1)
	if err != nil || home != nil || away != nil {
		t.Errorf("Lineups = %v, %v, %v", home, away, err)
	}
}

func TestClientRetries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantHits  int32
		wantErr   bool
		wantLimit bool
	}{
		{name: "recovers after server error", statuses: []int{500, 200}, wantHits: 2},
		{name: "gives up after retries", statuses: []int{503, 502, 500}, wantHits: 3, wantErr: true},
		{name: "client error is final", statuses: []int{404}, wantHits: 1, wantErr: true},
		{name: "throttled upstream", statuses: []int{429, 429, 429}, wantHits: 3, wantErr: true, wantLimit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&hits, 1)
				status := tt.statuses[min(int(n)-1, len(tt.statuses)-1)]
				w.WriteHeader(status)
				io.WriteString(w, `{"response": []}`)
			}))
			defer srv.Close()

			c := newClient("test", fastClient(srv.URL), nil, nil)
			var out map[string]any
			err := c.getJSON(context.Background(), "/x", nil, &out)

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantLimit && !errors.Is(err, logic.ErrRateLimited) {
				t.Errorf("err = %v, want ErrRateLimited", err)
			}
			if got := atomic.LoadInt32(&hits); got != tt.wantHits {
				t.Errorf("hits = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestFootballDataFixtures(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != "tok" {
			t.Errorf("X-Auth-Token = %q", r.Header.Get("X-Auth-Token"))
		}
		if r.URL.Query().Get("dateFrom") != "2025-03-08" || r.URL.Query().Get("dateTo") != "2025-03-10" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "/SA/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, `{"matches": [{
		  "id": 5001, "utcDate": "2025-03-09T20:00:00Z", "status": "TIMED",
		  "homeTeam": {"id": 86, "name": "Real Madrid CF", "crest": "rm.svg"},
		  "awayTeam": {"id": 81, "name": "FC Barcelona"},
		  "score": {"fullTime": {"home": null, "away": null}},
		  "area": {"name": "Spain"}
		}]}`)
	}))
	defer srv.Close()

	var slept []time.Duration
	limiter := &stubLimiter{allow: true}
	fd := NewFootballData(FootballDataConfig{
		ClientConfig: fastClient(srv.URL),
		Token:        "tok",
		Competitions: []string{"PD", "SA", "XYZ"},
		MinuteLimit:  10,
		RequestDelay: 6500 * time.Millisecond,
		Limiter:      limiter,
	})
	fd.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	fixtures, err := fd.Fixtures(context.Background(), day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("Fixtures: %v", err)
	}
	if len(paths) != 3 || paths[0] != "/competitions/PD/matches" {
		t.Errorf("paths = %v", paths)
	}
	if len(slept) != 2 || slept[0] != 6500*time.Millisecond {
		t.Errorf("delays = %v", slept)
	}
	if len(limiter.calls) != 3 || limiter.calls[0] != "football-data:minute" {
		t.Errorf("quota calls = %v", limiter.calls)
	}
	if len(fixtures) != 2 {
		t.Fatalf("got %d fixtures, failing competition should be skipped", len(fixtures))
	}

	f := fixtures[0]
	if f.League != "La Liga" || f.LeagueID != "PD" || f.Status != models.StatusScheduled || f.Country != "Spain" {
		t.Errorf("fixture = %+v", f)
	}
	if f.Home.Name != "Real Madrid CF" || f.Home.Crest != "rm.svg" || f.Provider != "football-data" {
		t.Errorf("team mapping = %+v", f.Home)
	}
	if fixtures[1].League != "XYZ" {
		t.Errorf("unknown competition name = %q", fixtures[1].League)
	}
}

func TestFootballDataQuotaExhausted(t *testing.T) {
	fd := NewFootballData(FootballDataConfig{
		ClientConfig: fastClient("http://127.0.0.1:0"),
		Limiter:      &stubLimiter{allow: false},
		MinuteLimit:  10,
	})
	if _, err := fd.Fixtures(context.Background(), day, day); !errors.Is(err, logic.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestOpenWeatherCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/weather" || q.Get("q") != "Liverpool,England" || q.Get("units") != "metric" || q.Get("appid") != "wk" {
			t.Errorf("request = %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		io.WriteString(w, `{"name": "Liverpool", "weather": [{"main": "Rain", "description": "light rain"}],
		  "main": {"temp": 9.5, "humidity": 87}, "wind": {"speed": 6.2}}`)
	}))
	defer srv.Close()

	ow := NewOpenWeather(OpenWeatherConfig{ClientConfig: fastClient(srv.URL), Key: "wk"})
	got, err := ow.Current(context.Background(), "Liverpool", "England")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.Main != "Rain" || got.TempC != 9.5 || got.Humidity != 87 || got.WindSpeed != 6.2 {
		t.Errorf("weather = %+v", got)
	}
	if got.Category() != models.WeatherRain {
		t.Errorf("category = %s", got.Category())
	}

	noKey := NewOpenWeather(OpenWeatherConfig{ClientConfig: fastClient(srv.URL)})
	if _, err := noKey.Current(context.Background(), "Liverpool", ""); !errors.Is(err, logic.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestGroqComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gk" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if req.Model != "llama-3.3-70b-versatile" || req.Temperature != 0.2 || len(req.Messages) != 1 || req.Messages[0].Content != "predict" {
			t.Errorf("body = %+v", req)
		}
		io.WriteString(w, `{"choices": [{"message": {"role": "assistant", "content": "{\"prediction_1n2\": \"1\"}"}}]}`)
	}))
	defer srv.Close()

	g := NewGroq(GroqConfig{ClientConfig: fastClient(srv.URL), Key: "gk", Model: "llama-3.3-70b-versatile"})
	text, err := g.Complete(context.Background(), "predict")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"prediction_1n2": "1"}` {
		t.Errorf("text = %q", text)
	}
}

func TestGroqEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": []}`)
	}))
	defer srv.Close()

	g := NewGroq(GroqConfig{ClientConfig: fastClient(srv.URL), Key: "gk"})
	if _, err := g.Complete(context.Background(), "p"); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://api.example.com/weather?q=Paris&appid=secret")
	if strings.Contains(got, "secret") || !strings.Contains(got, "q=Paris") {
		t.Errorf("redactURL = %s", got)
	}
}

func TestSeasonOf(t *testing.T) {
	if got := seasonOf(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)); got != 2024 {
		t.Errorf("March season = %d", got)
	}
	if got := seasonOf(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)); got != 2025 {
		t.Errorf("August season = %d", got)
	}
}
