package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/analytics"
	"github.com/kickoffai/predictions-api/internal/cache"
	"github.com/kickoffai/predictions-api/internal/config"
	"github.com/kickoffai/predictions-api/internal/events"
	"github.com/kickoffai/predictions-api/internal/handlers"
	"github.com/kickoffai/predictions-api/internal/logger"
	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/providers"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
	"github.com/kickoffai/predictions-api/internal/store"
	"github.com/kickoffai/predictions-api/internal/worker"
)

const (
	serviceName = "predictions-api"

	// Windows of the scheduled sync job.
	cronUpcomingDays = 7
	cronPastDays     = 30

	shutdownTimeout = 15 * time.Second
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(serviceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service",
		zap.String("provider", cfg.ProviderMode.String()),
		zap.Bool("model", cfg.ModelConfigured()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to create postgres pool", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	log.Info("postgres connected")

	// Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid redis url", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	log.Info("redis connected")

	// ClickHouse is optional: without it the prediction log is disabled.
	var predictionLog logic.PredictionLog = analytics.Nop{}
	var chPing handlers.Pinger
	if cfg.ClickHouseURL != "" {
		ch, err := openClickHouse(ctx, cfg.ClickHouseURL)
		if err != nil {
			log.Fatal("failed to connect clickhouse", zap.Error(err))
		}
		defer ch.Close()
		predictionLog = analytics.NewPredictionLog(ch)
		chPing = handlers.PingFunc(ch.Ping)
		log.Info("clickhouse connected")
	}

	// Kafka is optional as well.
	var publisher logic.PredictionPublisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		writer := events.NewWriter(cfg.KafkaBrokers, cfg.KafkaPredictionsTopic)
		kp := events.NewKafkaPublisher(writer, log)
		defer kp.Close()
		publisher = kp
		log.Info("kafka writer ready", zap.String("topic", cfg.KafkaPredictionsTopic))
	}

	limiter := ratelimit.New(ratelimit.NewRedisCounterStore(rdb), log, ratelimit.WithLocalLayer())
	responseCache := cache.New(store.NewCacheTable(pg), cfg.CacheTTL, log, cache.WithMemoryLayer())
	db := store.NewPostgres(pg)

	httpCfg := providers.ClientConfig{Timeout: cfg.HTTPClientTimeout, Logger: log}

	apiFootball := providers.NewAPIFootball(providers.APIFootballConfig{
		ClientConfig: withBase(httpCfg, cfg.APIFootballBaseURL),
		Key:          cfg.APIFootballKey,
		RapidAPI:     cfg.APIFootballAuth == config.APIFootballAuthRapidAPI,
		Season:       cfg.Season,
		DailyLimit:   cfg.APIFootballDailyLimit,
		Limiter:      limiter,
	})
	footballData := providers.NewFootballData(providers.FootballDataConfig{
		ClientConfig: withBase(httpCfg, cfg.FootballDataBaseURL),
		Token:        cfg.FootballDataToken,
		MinuteLimit:  cfg.FootballDataMinuteLimit,
		RequestDelay: cfg.FootballDataRequestDelay,
		Limiter:      limiter,
	})
	weather := providers.NewOpenWeather(providers.OpenWeatherConfig{
		ClientConfig: withBase(httpCfg, cfg.OpenWeatherBaseURL),
		Key:          cfg.OpenWeatherKey,
	})

	var model logic.TextModel
	if cfg.ModelConfigured() {
		model = providers.NewGroq(providers.GroqConfig{
			ClientConfig: withBase(httpCfg, cfg.GroqBaseURL),
			Key:          cfg.GroqAPIKey,
			Model:        cfg.GroqModel,
		})
	}

	sources := []logic.FixtureSource{footballData}
	if cfg.ProviderMode == config.ProviderPrimary {
		sources = []logic.FixtureSource{apiFootball, footballData}
	}

	// Services
	teamStats := logic.NewTeamStatsService(db, db)
	enrichment := logic.NewEnrichmentService(db, apiFootball, weather, log)
	predictions := logic.NewPredictionService(logic.PredictionDeps{
		Store:      db,
		Stats:      teamStats,
		Enrichment: enrichment,
		Model:      model,
		Limiter:    limiter,
		Publisher:  publisher,
		Log:        predictionLog,
	}, logic.PredictionConfig{
		TTL:             cfg.PredictionTTL,
		ModelDailyLimit: cfg.GroqDailyLimit,
	}, log)
	matches := logic.NewMatchService(db)
	syncSvc := logic.NewSyncService(db, sources, responseCache, teamStats, log)
	usage := logic.NewUsageService(limiter, cfg.ProviderMode.String(), []logic.Quota{
		{API: logic.APIFootballAPI, Window: ratelimit.WindowDay, Limit: cfg.APIFootballDailyLimit, Configured: cfg.APIFootballKey != ""},
		{API: logic.FootballDataAPI, Window: ratelimit.WindowMinute, Limit: cfg.FootballDataMinuteLimit, Configured: true},
		{API: logic.ModelAPI, Window: ratelimit.WindowDay, Limit: cfg.GroqDailyLimit, Configured: cfg.ModelConfigured()},
	})

	// Background jobs
	pool := worker.NewPool(worker.PoolConfig{
		Matches:       db,
		Predictions:   predictions,
		Enrichment:    enrichment,
		Limit:         cfg.BulkRefreshLimit,
		Delay:         cfg.BulkRefreshDelay,
		EnrichmentTTL: cfg.EnrichmentTTL,
		Logger:        log,
	})
	scheduler := worker.NewScheduler(worker.SchedulerConfig{
		SyncSchedule: cfg.SyncSchedule,
		UpcomingDays: cronUpcomingDays,
		PastDays:     cronPastDays,
		Sync:         syncSvc,
		Cache:        responseCache,
		Logger:       log,
	})
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	h := handlers.New(handlers.Config{
		Checks: map[string]handlers.Pinger{
			"postgres":   pg,
			"redis":      handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
			"clickhouse": chPing,
		},
		Logger:         log,
		AdminToken:     cfg.AdminToken,
		CronSecret:     cfg.CronSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Matches:        matches,
		Predictions:    predictions,
		Usage:          usage,
		Enrichment:     enrichment,
		Sync:           syncSvc,
		Bulk:           pool,
		Cron:           scheduler,
		Cache:          responseCache,
		Log:            predictionLog,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func withBase(c providers.ClientConfig, baseURL string) providers.ClientConfig {
	c.BaseURL = baseURL
	return c
}

func openClickHouse(ctx context.Context, dsn string) (driver.Conn, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
