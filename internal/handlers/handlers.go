package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BulkRunner runs the sequential bulk jobs over upcoming matches.
type BulkRunner interface {
	RefreshUpcoming(ctx context.Context) (*models.BulkRefreshResult, error)
	EnrichUpcoming(ctx context.Context) (*models.EnrichResult, error)
}

// SyncRunner runs the scheduled sync job on demand.
type SyncRunner interface {
	RunNow(ctx context.Context) (*models.SyncResponse, error)
}

// CacheCleaner purges expired cache rows.
type CacheCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type Config struct {
	// Checks maps dependency names to readiness probes. Nil entries are skipped.
	Checks map[string]Pinger
	Logger *zap.Logger

	AdminToken     string
	CronSecret     string
	AllowedOrigins []string

	// Services
	Matches     logic.MatchService
	Predictions logic.PredictionService
	Usage       logic.UsageService
	Enrichment  logic.EnrichmentService
	Sync        logic.SyncService
	Bulk        BulkRunner
	Cron        SyncRunner
	Cache       CacheCleaner
	Log         logic.PredictionLog
}

type Handler struct {
	checks         map[string]Pinger
	logger         *zap.SugaredLogger
	validator      *validator.Validate
	adminHash      string
	cronHash       string
	allowedOrigins []string
	matches        logic.MatchService
	predictions    logic.PredictionService
	usage          logic.UsageService
	enrichment     logic.EnrichmentService
	sync           logic.SyncService
	bulk           BulkRunner
	cron           SyncRunner
	cache          CacheCleaner
	log            logic.PredictionLog
}

func New(cfg Config) *Handler {
	return &Handler{
		checks:         cfg.Checks,
		logger:         cfg.Logger.Sugar(),
		validator:      validator.New(),
		adminHash:      hashSecret(cfg.AdminToken),
		cronHash:       hashSecret(cfg.CronSecret),
		allowedOrigins: cfg.AllowedOrigins,
		matches:        cfg.Matches,
		predictions:    cfg.Predictions,
		usage:          cfg.Usage,
		enrichment:     cfg.Enrichment,
		sync:           cfg.Sync,
		bulk:           cfg.Bulk,
		cron:           cfg.Cron,
		cache:          cfg.Cache,
		log:            cfg.Log,
	}
}

// hashSecret returns the digest of a configured secret, or "" when unset.
func hashSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return hashToken(secret)
}
