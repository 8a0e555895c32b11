package handlers

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const readyTimeout = 2 * time.Second

// hashToken creates a SHA256 hash of a token for constant-length comparison
func hashToken(token string) string {
	h := sha256.New()
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]bool, len(h.checks))
	allHealthy := true
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		ok := p.Ping(ctx) == nil
		if !ok {
			allHealthy = false
			h.logger.Warnw("Readiness check failed", "dependency", name)
		}
		checks[name] = ok
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
	})
}

// AdminMiddleware accepts requests carrying the admin token as a bearer token
// or in X-Admin-Token. Admin routes are refused when no token is configured.
func (h *Handler) AdminMiddleware(next http.Handler) http.Handler {
	return h.requireSecret(h.adminHash, "X-Admin-Token", next)
}

// CronMiddleware accepts requests carrying CRON_SECRET as a bearer token.
func (h *Handler) CronMiddleware(next http.Handler) http.Handler {
	return h.requireSecret(h.cronHash, "", next)
}

func (h *Handler) requireSecret(wantHash, header string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantHash == "" {
			h.errorResponse(w, http.StatusForbidden, "Endpoint disabled")
			return
		}

		token := ""
		if header != "" {
			token = r.Header.Get(header)
		}
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			h.errorResponse(w, http.StatusUnauthorized, "Missing token")
			return
		}

		if subtle.ConstantTimeCompare([]byte(hashToken(token)), []byte(wantHash)) != 1 {
			h.errorResponse(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// intQuery parses a positive integer query parameter within [1, upper].
// Missing values yield def; malformed or out-of-range values report ok=false.
func intQuery(r *http.Request, name string, def, upper int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > upper {
		return 0, false
	}
	return v, true
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
