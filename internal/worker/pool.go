// Package worker runs the bulk maintenance jobs over upcoming matches and
// the cron schedule that keeps fixtures in sync.
//
// Bulk jobs process matches one at a time with a fixed pause between
// upstream calls so that per-minute provider quotas are never exceeded.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// Job names used in metric labels and logs.
const (
	JobRefresh = "refresh"
	JobEnrich  = "enrich"
)

// Prometheus metrics
var (
	bulkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_items_total",
		Help: "Matches processed by bulk jobs",
	}, []string{"job", "result"})

	bulkRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulk_run_duration_seconds",
		Help:    "Duration of bulk job runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"job"})
)

// PoolConfig configures the bulk job runner.
type PoolConfig struct {
	Matches       logic.MatchStore
	Predictions   logic.PredictionService
	Enrichment    logic.EnrichmentService
	Limit         int
	Delay         time.Duration
	EnrichmentTTL time.Duration
	Logger        *zap.Logger
}

// Pool runs bulk refresh and enrichment over the next upcoming matches.
type Pool struct {
	config PoolConfig
	logger *zap.SugaredLogger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPool creates a new bulk job runner
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.EnrichmentTTL <= 0 {
		cfg.EnrichmentTTL = 6 * time.Hour
	}
	return &Pool{
		config: cfg,
		logger: cfg.Logger.Sugar(),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// RefreshUpcoming regenerates the prediction of every upcoming scheduled
// match, up to the configured limit. A failing match is recorded and the
// run continues.
func (p *Pool) RefreshUpcoming(ctx context.Context) (*models.BulkRefreshResult, error) {
	start := time.Now()
	defer func() { bulkRunDuration.WithLabelValues(JobRefresh).Observe(time.Since(start).Seconds()) }()

	matches, err := p.upcoming(ctx, false)
	if err != nil {
		return nil, err
	}

	result := &models.BulkRefreshResult{RunID: uuid.NewString(), Total: len(matches)}
	p.logger.Infow("Bulk refresh started", "runID", result.RunID, "matches", len(matches))

	for i, m := range matches {
		if i > 0 && p.config.Delay > 0 {
			if err := p.sleep(ctx, p.config.Delay); err != nil {
				return result, err
			}
		}

		if _, err := p.config.Predictions.Generate(ctx, m.ID, true); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("match %d: %v", m.ID, err))
			bulkItems.WithLabelValues(JobRefresh, "failed").Inc()
			p.logger.Warnw("Bulk refresh failed for match", "runID", result.RunID, "matchID", m.ID, "error", err)
			continue
		}
		result.Generated++
		bulkItems.WithLabelValues(JobRefresh, "ok").Inc()
	}

	p.logger.Infow("Bulk refresh finished",
		"runID", result.RunID,
		"generated", result.Generated,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	return result, nil
}

// EnrichUpcoming enriches upcoming matches that carry a provider id,
// skipping those enriched within the enrichment TTL. The pause applies only
// between matches that actually hit the providers.
func (p *Pool) EnrichUpcoming(ctx context.Context) (*models.EnrichResult, error) {
	start := time.Now()
	defer func() { bulkRunDuration.WithLabelValues(JobEnrich).Observe(time.Since(start).Seconds()) }()

	matches, err := p.upcoming(ctx, true)
	if err != nil {
		return nil, err
	}

	result := &models.EnrichResult{}
	called := false
	for _, m := range matches {
		fresh, err := p.config.Enrichment.EnrichedSince(ctx, m.ID, p.config.EnrichmentTTL)
		if err != nil {
			p.logger.Warnw("Enrichment freshness check failed", "matchID", m.ID, "error", err)
		}
		if fresh {
			result.Skipped++
			bulkItems.WithLabelValues(JobEnrich, "skipped").Inc()
			continue
		}

		if called && p.config.Delay > 0 {
			if err := p.sleep(ctx, p.config.Delay); err != nil {
				return result, err
			}
		}
		called = true

		if _, err := p.config.Enrichment.Enrich(ctx, m.ID); err != nil {
			result.Failed++
			bulkItems.WithLabelValues(JobEnrich, "failed").Inc()
			p.logger.Warnw("Bulk enrichment failed for match", "matchID", m.ID, "error", err)
			continue
		}
		result.Enriched++
		bulkItems.WithLabelValues(JobEnrich, "ok").Inc()
	}

	p.logger.Infow("Bulk enrichment finished",
		"enriched", result.Enriched,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	return result, nil
}

func (p *Pool) upcoming(ctx context.Context, withProviderID bool) ([]models.MatchDetail, error) {
	return p.config.Matches.ListMatches(ctx, logic.MatchQuery{
		Statuses:       []models.MatchStatus{models.StatusScheduled},
		From:           p.now().UTC(),
		WithProviderID: withProviderID,
		Sort:           "date",
		Limit:          p.config.Limit,
	})
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
