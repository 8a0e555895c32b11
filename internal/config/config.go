package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderMode selects which sports data provider drives fixture sync.
type ProviderMode int

const (
	// ProviderPrimary uses API-Football (fixtures, injuries, lineups, head-to-head).
	ProviderPrimary ProviderMode = iota
	// ProviderFallback uses football-data.org (fixtures only).
	ProviderFallback
)

func (m ProviderMode) String() string {
	if m == ProviderPrimary {
		return "api-football"
	}
	return "football-data"
}

// APIFootballAuth is the header style used to authenticate against API-Football.
type APIFootballAuth string

const (
	APIFootballAuthAPISports APIFootballAuth = "apisports"
	APIFootballAuthRapidAPI  APIFootballAuth = "rapidapi"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Messaging
	KafkaBrokers          []string
	KafkaPredictionsTopic string

	// Providers
	ProviderMode          ProviderMode
	APIFootballKey        string
	APIFootballAuth       APIFootballAuth
	APIFootballBaseURL    string
	APIFootballDailyLimit int
	Season                int

	FootballDataToken        string
	FootballDataBaseURL      string
	FootballDataMinuteLimit  int
	FootballDataRequestDelay time.Duration

	OpenWeatherKey     string
	OpenWeatherBaseURL string

	GroqAPIKey     string
	GroqModel      string
	GroqBaseURL    string
	GroqDailyLimit int

	HTTPClientTimeout time.Duration

	// Freshness
	PredictionTTL time.Duration
	CacheTTL      time.Duration
	EnrichmentTTL time.Duration

	// Bulk jobs
	BulkRefreshDelay time.Duration
	BulkRefreshLimit int
	SyncSchedule     string

	// Auth
	AdminToken string
	CronSecret string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ClickHouseURL:         os.Getenv("CLICKHOUSE_URL"),
		KafkaPredictionsTopic: getEnv("KAFKA_TOPIC_PREDICTIONS", "predictions.generated"),

		APIFootballKey:        os.Getenv("API_FOOTBALL_KEY"),
		APIFootballBaseURL:    getEnv("API_FOOTBALL_BASE_URL", "https://v3.football.api-sports.io"),
		APIFootballDailyLimit: getEnvInt("API_FOOTBALL_DAILY_LIMIT", 100),
		Season:                getEnvInt("FOOTBALL_SEASON", defaultSeason(time.Now().UTC())),

		FootballDataToken:        os.Getenv("FOOTBALL_DATA_API_TOKEN"),
		FootballDataBaseURL:      getEnv("FOOTBALL_DATA_BASE_URL", "https://api.football-data.org/v4"),
		FootballDataMinuteLimit:  getEnvInt("FOOTBALL_DATA_MINUTE_LIMIT", 10),
		FootballDataRequestDelay: getEnvDuration("FOOTBALL_DATA_REQUEST_DELAY", 6500*time.Millisecond),

		OpenWeatherKey:     os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),

		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroqModel:      getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:    getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqDailyLimit: getEnvInt("GROQ_DAILY_LIMIT", 100),

		HTTPClientTimeout: getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),

		PredictionTTL: getEnvDuration("PREDICTION_TTL", 6*time.Hour),
		CacheTTL:      getEnvDuration("CACHE_TTL", 6*time.Hour),
		EnrichmentTTL: getEnvDuration("ENRICHMENT_TTL", 6*time.Hour),

		BulkRefreshDelay: getEnvDuration("BULK_REFRESH_DELAY", 500*time.Millisecond),
		BulkRefreshLimit: getEnvInt("BULK_REFRESH_LIMIT", 20),
		SyncSchedule:     os.Getenv("SYNC_SCHEDULE"),

		AdminToken: os.Getenv("ADMIN_TOKEN"),
		CronSecret: os.Getenv("CRON_SECRET"),
	}

	// CORS
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))

	auth, err := parseAPIFootballAuth(getEnv("API_FOOTBALL_AUTH", string(APIFootballAuthAPISports)))
	if err != nil {
		return nil, err
	}
	cfg.APIFootballAuth = auth
	if auth == APIFootballAuthRapidAPI && os.Getenv("API_FOOTBALL_BASE_URL") == "" {
		cfg.APIFootballBaseURL = "https://api-football-v1.p.rapidapi.com/v3"
	}

	cfg.ProviderMode = ProviderFallback
	if cfg.APIFootballKey != "" {
		cfg.ProviderMode = ProviderPrimary
	}

	// Critical configuration - fail if missing
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ModelConfigured reports whether the text-generation model can be called at all.
func (c *Config) ModelConfigured() bool {
	return c.GroqAPIKey != ""
}

func parseAPIFootballAuth(v string) (APIFootballAuth, error) {
	switch APIFootballAuth(strings.ToLower(strings.TrimSpace(v))) {
	case APIFootballAuthAPISports:
		return APIFootballAuthAPISports, nil
	case APIFootballAuthRapidAPI:
		return APIFootballAuthRapidAPI, nil
	}
	return "", fmt.Errorf("invalid API_FOOTBALL_AUTH %q: want apisports or rapidapi", v)
}

// defaultSeason returns the starting year of the European season containing t.
func defaultSeason(t time.Time) int {
	if t.Month() >= time.July {
		return t.Year()
	}
	return t.Year() - 1
}

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
