package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ModelAPI is the quota name of the text-generation model.
const ModelAPI = "groq"

const analysisUnavailable = "Analysis not available."

var (
	predictionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictions_generated_total",
		Help: "Predictions computed, by source",
	}, []string{"source"})

	predictionsReused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictions_reused_total",
		Help: "Requests answered with a fresh stored prediction",
	})

	modelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_model_failures_total",
		Help: "Model path demotions to the statistical fallback, by reason",
	}, []string{"reason"})

	modelDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_model_duration_seconds",
		Help:    "Latency of text-generation model calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})
)

// PredictionConfig tunes the generator.
type PredictionConfig struct {
	// TTL is how long a stored prediction is returned without recomputation.
	TTL time.Duration
	// ModelDailyLimit caps model calls per UTC day.
	ModelDailyLimit int
}

// PredictionDeps groups the collaborators of the generator. Model, Limiter,
// Publisher and Log are optional.
type PredictionDeps struct {
	Store      Store
	Stats      TeamStatsService
	Enrichment EnrichmentService
	Model      TextModel
	Limiter    Limiter
	Publisher  PredictionPublisher
	Log        PredictionLog
}

type predictionService struct {
	deps   PredictionDeps
	cfg    PredictionConfig
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewPredictionService(deps PredictionDeps, cfg PredictionConfig, logger *zap.Logger) PredictionService {
	if cfg.TTL <= 0 {
		cfg.TTL = 6 * time.Hour
	}
	if cfg.ModelDailyLimit <= 0 {
		cfg.ModelDailyLimit = 100
	}
	return &predictionService{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Sugar(),
		now:    time.Now,
	}
}

// Generate returns the stored prediction of a match while it is fresh, and
// recomputes it otherwise. force skips the freshness check. Model failures
// fall back to the statistical forecast; persistence failures are returned.
func (s *predictionService) Generate(ctx context.Context, matchID int64, force bool) (*models.Prediction, error) {
	match, err := s.deps.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !force {
		existing, err := s.deps.Store.GetPrediction(ctx, matchID)
		switch {
		case err == nil && existing.FreshAt(s.now(), s.cfg.TTL):
			predictionsReused.Inc()
			return existing, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("load prediction for match %d: %w", matchID, err)
		}
	}

	start := s.now()

	home, err := s.deps.Store.GetTeam(ctx, match.HomeTeamID)
	if err != nil {
		return nil, fmt.Errorf("load home team: %w", err)
	}
	away, err := s.deps.Store.GetTeam(ctx, match.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("load away team: %w", err)
	}

	homeStats, err := s.deps.Stats.Refresh(ctx, home.ID, match.LeagueID)
	if err != nil {
		return nil, err
	}
	awayStats, err := s.deps.Stats.Refresh(ctx, away.ID, match.LeagueID)
	if err != nil {
		return nil, err
	}
	home.TeamRecord = homeStats.Totals
	away.TeamRecord = awayStats.Totals

	enrichment, err := s.deps.Enrichment.Load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(PromptInput{
		Match:      match,
		Home:       home,
		Away:       away,
		HomeStats:  homeStats,
		AwayStats:  awayStats,
		Enrichment: enrichment,
	})
	basic := ComputeBasicStats(home.TeamRecord, away.TeamRecord)

	source := models.SourceModel
	forecast, err := s.modelForecast(ctx, matchID, prompt, basic)
	if err != nil {
		s.logger.Infow("Using statistical fallback", "matchID", matchID, "reason", err)
		source = models.SourceFallback
		forecast = FallbackForecast(home, away)
	}

	p := ForecastToPrediction(matchID, forecast, source, s.now())
	if err := s.deps.Store.UpsertPrediction(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert prediction for match %d: %w", matchID, err)
	}
	latency := s.now().Sub(start)
	predictionsGenerated.WithLabelValues(string(source)).Inc()

	s.logger.Infow("Prediction generated",
		"matchID", matchID,
		"source", source,
		"outcome", p.Outcome,
		"score", p.PredictedScore,
		"latency", latency,
	)

	s.announce(ctx, match, p, latency)
	return p, nil
}

// modelForecast runs the model path. Any error means the caller must fall back.
func (s *predictionService) modelForecast(ctx context.Context, matchID int64, prompt string, basic BasicStats) (models.Forecast, error) {
	if s.deps.Model == nil {
		modelFailures.WithLabelValues("unconfigured").Inc()
		return models.Forecast{}, ErrProviderUnavailable
	}
	if s.deps.Limiter != nil && !s.deps.Limiter.TryConsume(ctx, ModelAPI, s.cfg.ModelDailyLimit, ratelimit.WindowDay) {
		modelFailures.WithLabelValues("rate_limited").Inc()
		return models.Forecast{}, ErrRateLimited
	}

	timer := prometheus.NewTimer(modelDuration)
	raw, err := s.deps.Model.Complete(ctx, prompt)
	timer.ObserveDuration()
	if err != nil {
		modelFailures.WithLabelValues("request").Inc()
		s.logger.Warnw("Model call failed", "matchID", matchID, "error", err)
		return models.Forecast{}, err
	}

	forecast, err := ParseModelOutput(raw, basic)
	if err != nil {
		modelFailures.WithLabelValues("malformed").Inc()
		s.logger.Warnw("Model reply rejected", "matchID", matchID, "error", err)
		return models.Forecast{}, err
	}
	return forecast, nil
}

func (s *predictionService) announce(ctx context.Context, match *models.Match, p *models.Prediction, latency time.Duration) {
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishPrediction(ctx, models.NewPredictionEvent(p, latency)); err != nil {
			s.logger.Warnw("Failed to publish prediction event", "matchID", p.MatchID, "error", err)
		}
	}
	if s.deps.Log != nil {
		entry := models.PredictionLogEntry{
			MatchID:        p.MatchID,
			League:         match.League,
			Outcome:        string(p.Outcome),
			PredictedScore: p.PredictedScore,
			HomeWinProb:    p.HomeWinProb,
			DrawProb:       p.DrawProb,
			AwayWinProb:    p.AwayWinProb,
			Confidence:     p.Confidence,
			Source:         string(p.Source),
			LatencyMs:      uint32(latency.Milliseconds()),
		}
		if err := s.deps.Log.Append(ctx, entry); err != nil {
			s.logger.Warnw("Failed to log prediction", "matchID", p.MatchID, "error", err)
		}
	}
}

// StripCodeFences removes a surrounding ``` or ```json fence and any text
// around the outermost JSON object.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.Contains(text[:nl], "{") {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseModelOutput validates and repairs a model reply. The outcome class and
// the predicted score are required; every other field has a default.
func ParseModelOutput(raw string, basic BasicStats) (models.Forecast, error) {
	var out models.ModelOutput
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		return models.Forecast{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	if strings.TrimSpace(out.Prediction1N2) == "" {
		return models.Forecast{}, fmt.Errorf("%w: missing prediction_1n2", ErrMalformedModelOutput)
	}
	if strings.TrimSpace(out.PredictedScore) == "" {
		return models.Forecast{}, fmt.Errorf("%w: missing predicted_score", ErrMalformedModelOutput)
	}
	home, away, err := ParseScore(out.PredictedScore)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	outcome := models.Outcome(strings.ToUpper(strings.TrimSpace(out.Prediction1N2)))
	if !outcome.Valid() {
		outcome = models.OutcomeDraw
	}
	confidence := percentOr(out.Confidence1N2, 50)
	outcome, confidence = WidenLowConfidence(outcome, confidence, basic.HomeWinProb, basic.DrawProb, basic.AwayWinProb)
	home, away = RepairScore(outcome, home, away)

	f := models.Forecast{
		Outcome:         outcome,
		Confidence:      confidence,
		PredictedScore:  FormatScore(home, away),
		ConfidenceScore: percentOr(out.ConfidenceScore, 40),
		Analysis:        strings.TrimSpace(out.Analysis),
	}
	if f.Analysis == "" {
		f.Analysis = analysisUnavailable
	}

	if out.BTTS != nil {
		f.BTTS = *out.BTTS
		f.ConfidenceBTTS = percentOr(out.ConfidenceBTTS, 50)
	} else {
		f.BTTS = basic.BTTSProb > 0.5
		f.ConfidenceBTTS = percentOr(out.ConfidenceBTTS, sideConfidence(basic.BTTSProb))
	}

	switch ou := strings.ToUpper(strings.TrimSpace(out.OverUnder25)); ou {
	case models.Over25, models.Under25:
		f.OverUnder25 = ou
		f.ConfidenceOU25 = percentOr(out.ConfidenceOU25, 50)
	default:
		f.OverUnder25 = models.Under25
		if basic.Over25Prob > 0.5 {
			f.OverUnder25 = models.Over25
		}
		f.ConfidenceOU25 = percentOr(out.ConfidenceOU25, sideConfidence(basic.Over25Prob))
	}

	return f, nil
}

// ForecastToPrediction maps a forecast onto normalized probabilities.
func ForecastToPrediction(matchID int64, f models.Forecast, source models.PredictionSource, now time.Time) *models.Prediction {
	home, draw, away := Probabilities(f.Outcome, f.Confidence)

	btts := float64(f.ConfidenceBTTS) / 100
	if !f.BTTS {
		btts = 1 - btts
	}
	over := float64(f.ConfidenceOU25) / 100
	if f.OverUnder25 != models.Over25 {
		over = 1 - over
	}

	return &models.Prediction{
		MatchID:         matchID,
		HomeWinProb:     home,
		DrawProb:        draw,
		AwayWinProb:     away,
		PredictedScore:  f.PredictedScore,
		ConfidenceScore: f.ConfidenceScore,
		BTTSProb:        btts,
		Over25Prob:      over,
		Analysis:        f.Analysis,
		Confidence:      float64(f.Confidence) / 100,
		Outcome:         f.Outcome,
		Source:          source,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func percentOr(v *float64, fallback int) int {
	if v == nil || math.IsNaN(*v) {
		return fallback
	}
	return clampPercent(*v)
}

// sideConfidence is the confidence of the likelier side of a yes/no market.
func sideConfidence(p float64) int {
	return clampPercent(math.Max(p, 1-p) * 100)
}
