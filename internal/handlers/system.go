package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// Enrich enriches one match, or every upcoming match when no match_id is given
// @Summary Enrich Matches
// @Tags System
// @Accept json
// @Produce json
// @Security AdminToken
// @Param body body models.EnrichRequest false "Optional match"
// @Success 200 {object} models.EnrichResult
// @Failure 404 {object} map[string]string "Not Found"
// @Router /enrich [post]
func (h *Handler) Enrich(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "match_id must be positive")
		return
	}

	ctx := r.Context()
	if req.MatchID > 0 {
		enrichment, err := h.enrichment.Enrich(ctx, req.MatchID)
		if errors.Is(err, logic.ErrNotFound) {
			h.errorResponse(w, http.StatusNotFound, "Match not found")
			return
		}
		if err != nil {
			h.logger.Errorw("Failed to enrich match", "error", err, "matchID", req.MatchID)
			h.errorResponse(w, http.StatusInternalServerError, "Failed to enrich match")
			return
		}
		h.jsonResponse(w, http.StatusOK, map[string]interface{}{
			"match_id":   req.MatchID,
			"enrichment": enrichment,
		})
		return
	}

	res, err := h.bulk.EnrichUpcoming(ctx)
	if err != nil && res == nil {
		h.logger.Errorw("Bulk enrichment failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Bulk enrichment failed")
		return
	}
	h.jsonResponse(w, http.StatusOK, res)
}

// Sync maps provider fixtures onto local teams and matches
// @Summary Sync Fixtures
// @Tags System
// @Accept json
// @Produce json
// @Security AdminToken
// @Param body body models.SyncRequest false "Days ahead and back"
// @Success 200 {object} models.SyncResponse
// @Failure 503 {object} map[string]string "No provider available"
// @Router /sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "days must be 1-14 and past_days 0-14")
		return
	}

	if req.Days == 0 {
		req.Days = 7
	}

	ctx := r.Context()
	upcoming, err := h.sync.SyncUpcoming(ctx, req.Days)
	if err != nil {
		h.syncError(w, err)
		return
	}
	resp := models.SyncResponse{Upcoming: *upcoming}
	if req.PastDays > 0 {
		past, err := h.sync.SyncPast(ctx, req.PastDays)
		if err != nil {
			h.syncError(w, err)
			return
		}
		resp.Past = past
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// CronSync runs the scheduled sync job; called by an external scheduler
// @Summary Cron Sync
// @Tags System
// @Produce json
// @Security CronSecret
// @Success 200 {object} models.SyncResponse
// @Router /cron/sync [get]
func (h *Handler) CronSync(w http.ResponseWriter, r *http.Request) {
	resp, err := h.cron.RunNow(r.Context())
	if err != nil {
		h.syncError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

func (h *Handler) syncError(w http.ResponseWriter, err error) {
	h.logger.Errorw("Fixture sync failed", "error", err)
	switch {
	case errors.Is(err, logic.ErrProviderUnavailable), errors.Is(err, logic.ErrRateLimited):
		h.errorResponse(w, http.StatusServiceUnavailable, "No fixture provider available")
	default:
		h.errorResponse(w, http.StatusInternalServerError, "Fixture sync failed")
	}
}

// ClearCache deletes expired cache rows
// @Summary Clear Expired Cache
// @Tags System
// @Produce json
// @Security AdminToken
// @Success 200 {object} map[string]interface{}
// @Router /cache/clear [post]
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.cache.CleanExpired(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to clear cache", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	h.logger.Infow("Expired cache entries removed", "count", deleted)
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}
