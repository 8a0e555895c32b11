package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// ErrDisabled is returned by Nop.Stats.
var ErrDisabled = errors.New("analytics disabled")

// Conn is the subset of driver.Conn used by the prediction log.
type Conn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

type predictionLog struct {
	ch  Conn
	now func() time.Time
}

// NewPredictionLog stores generated predictions in the prediction_log table.
func NewPredictionLog(ch Conn) logic.PredictionLog {
	return &predictionLog{ch: ch, now: time.Now}
}

func (l *predictionLog) Append(ctx context.Context, e models.PredictionLogEntry) error {
	batch, err := l.ch.PrepareBatch(ctx, `
		INSERT INTO prediction_log (
			created_at, match_id, league, outcome, predicted_score,
			home_win_prob, draw_prob, away_win_prob, confidence, source, latency_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare prediction_log batch: %w", err)
	}

	err = batch.Append(
		l.now().UTC(),
		e.MatchID,
		e.League,
		e.Outcome,
		e.PredictedScore,
		e.HomeWinProb,
		e.DrawProb,
		e.AwayWinProb,
		e.Confidence,
		e.Source,
		e.LatencyMs,
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("append prediction_log row: %w", err)
	}
	return batch.Send()
}

// Stats aggregates every prediction logged since the given instant.
func (l *predictionLog) Stats(ctx context.Context, since time.Time) (*models.GenerationStats, error) {
	rows, err := l.ch.Query(ctx, `
		SELECT
			source,
			outcome,
			count() AS n,
			avg(latency_ms) AS avg_latency
		FROM prediction_log
		WHERE created_at >= ?
		GROUP BY source, outcome
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.GenerationStats{
		BySource:  map[string]uint64{},
		ByOutcome: map[string]uint64{},
	}
	var latencySum float64
	for rows.Next() {
		var (
			source, outcome string
			n               uint64
			avgLatency      float64
		)
		if err := rows.Scan(&source, &outcome, &n, &avgLatency); err != nil {
			return nil, err
		}
		stats.Total += n
		stats.BySource[source] += n
		stats.ByOutcome[outcome] += n
		latencySum += avgLatency * float64(n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.FallbackRatio = float64(stats.BySource[string(models.SourceFallback)]) / float64(stats.Total)
		stats.AvgLatencyMs = latencySum / float64(stats.Total)
	}
	return stats, nil
}

// Nop is used when ClickHouse is not configured.
type Nop struct{}

func (Nop) Append(context.Context, models.PredictionLogEntry) error { return nil }

func (Nop) Stats(context.Context, time.Time) (*models.GenerationStats, error) {
	return nil, ErrDisabled
}
