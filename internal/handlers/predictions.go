package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kickoffai/predictions-api/internal/analytics"
	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// ListMatches returns upcoming scheduled matches with their predictions
// @Summary List Upcoming Matches
// @Tags Matches
// @Produce json
// @Param league query string false "League name"
// @Param days query int false "Days ahead (1-14, default 7)"
// @Param limit query int false "Max matches (1-500, default 50)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /matches [get]
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(r, "days", 7, 14)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "days must be between 1 and 14")
		return
	}
	limit, ok := intQuery(r, "limit", 50, 500)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	now := time.Now().UTC()
	views, err := h.matches.Upcoming(r.Context(), logic.MatchQuery{
		League: r.URL.Query().Get("league"),
		From:   now,
		To:     now.AddDate(0, 0, days),
		Limit:  limit,
	})
	if err != nil {
		h.logger.Errorw("Failed to list matches", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list matches")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"matches": views,
		"count":   len(views),
	})
}

// GetPrediction returns the prediction of a match, generating it when missing or stale
// @Summary Get Match Prediction
// @Tags Predictions
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} models.PredictionView
// @Failure 404 {object} map[string]string "Not Found"
// @Router /predictions/{matchID} [get]
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseInt(chi.URLParam(r, "matchID"), 10, 64)
	if err != nil || matchID <= 0 {
		h.errorResponse(w, http.StatusBadRequest, "Invalid match ID")
		return
	}
	h.generate(w, r, matchID, false)
}

// RequestPrediction generates a prediction, optionally bypassing freshness
// @Summary Request Prediction
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.PredictionRequest true "Match and force flag"
// @Success 200 {object} models.PredictionView
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /predictions [post]
func (h *Handler) RequestPrediction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "match_id is required")
		return
	}
	h.generate(w, r, req.MatchID, req.Force)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, matchID int64, force bool) {
	p, err := h.predictions.Generate(r.Context(), matchID, force)
	if errors.Is(err, logic.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, "Match not found")
		return
	}
	if err != nil {
		h.logger.Errorw("Failed to generate prediction", "error", err, "matchID", matchID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to generate prediction")
		return
	}
	h.jsonResponse(w, http.StatusOK, logic.FormatPrediction(p))
}

// RefreshPredictions regenerates predictions of the next upcoming matches
// @Summary Bulk Refresh Predictions
// @Tags Predictions
// @Produce json
// @Security AdminToken
// @Success 200 {object} models.BulkRefreshResult
// @Router /predictions/refresh [post]
func (h *Handler) RefreshPredictions(w http.ResponseWriter, r *http.Request) {
	res, err := h.bulk.RefreshUpcoming(r.Context())
	if err != nil && res == nil {
		h.logger.Errorw("Bulk refresh failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Bulk refresh failed")
		return
	}
	if err != nil {
		h.logger.Warnw("Bulk refresh interrupted", "runID", res.RunID, "error", err)
	}
	h.jsonResponse(w, http.StatusOK, res)
}

// PredictionHistory returns past predicted matches grouped by day
// @Summary Prediction History
// @Tags Predictions
// @Produce json
// @Param days query int false "Days back (1-30, default 3)"
// @Success 200 {object} map[string]interface{}
// @Router /predictions/history [get]
func (h *Handler) PredictionHistory(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(r, "days", 3, 30)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "days must be between 1 and 30")
		return
	}

	history, err := h.matches.History(r.Context(), days)
	if err != nil {
		h.logger.Errorw("Failed to load prediction history", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if history == nil {
		history = []models.HistoryDay{}
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"days":    days,
		"history": history,
	})
}

// PredictionStats returns generation analytics from the prediction log
// @Summary Prediction Generation Stats
// @Tags Predictions
// @Produce json
// @Param days query int false "Days back (1-90, default 7)"
// @Success 200 {object} models.GenerationStats
// @Failure 503 {object} map[string]string "Analytics disabled"
// @Router /predictions/stats [get]
func (h *Handler) PredictionStats(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(r, "days", 7, 90)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "days must be between 1 and 90")
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := h.log.Stats(r.Context(), since)
	if errors.Is(err, analytics.ErrDisabled) {
		h.errorResponse(w, http.StatusServiceUnavailable, "Analytics not configured")
		return
	}
	if err != nil {
		h.logger.Errorw("Failed to load prediction stats", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	stats.Days = days

	h.jsonResponse(w, http.StatusOK, stats)
}

// Usage reports upstream quota consumption
// @Summary API Usage
// @Tags System
// @Produce json
// @Success 200 {object} models.UsageResponse
// @Router /usage [get]
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.usage.Usage(r.Context()))
}
