package logic

import (
	"context"
	"math"
	"time"

	"github.com/kickoffai/predictions-api/internal/models"
	"github.com/kickoffai/predictions-api/internal/ratelimit"
)

// Quota names of the sports data providers.
const (
	APIFootballAPI  = "api-football"
	FootballDataAPI = "football-data"
)

const usageWarningPercent = 80

// Quota describes one upstream quota reported by the usage endpoint.
type Quota struct {
	API        string
	Window     ratelimit.Window
	Limit      int
	Configured bool
}

type usageService struct {
	limiter  Limiter
	provider string
	quotas   []Quota
	now      func() time.Time
}

func NewUsageService(limiter Limiter, provider string, quotas []Quota) UsageService {
	return &usageService{limiter: limiter, provider: provider, quotas: quotas, now: time.Now}
}

func (s *usageService) Usage(ctx context.Context) *models.UsageResponse {
	now := s.now().UTC()
	resp := &models.UsageResponse{Provider: s.provider, APIs: make([]models.APIUsage, 0, len(s.quotas))}
	for _, q := range s.quotas {
		used := s.limiter.CurrentUsage(ctx, q.API, q.Window)
		resp.APIs = append(resp.APIs, QuotaUsage(q, used, now))
	}
	return resp
}

// QuotaUsage renders the consumption of q at now.
func QuotaUsage(q Quota, used int64, now time.Time) models.APIUsage {
	u := models.APIUsage{
		API:        q.API,
		Window:     string(q.Window),
		Used:       used,
		Limit:      q.Limit,
		Remaining:  max(0, int64(q.Limit)-used),
		Configured: q.Configured,
		ResetsAt:   q.Window.End(now),
	}
	if q.Limit > 0 {
		u.Percentage = math.Round(float64(used) / float64(q.Limit) * 100)
	}
	switch {
	case !q.Configured:
		u.Warning = "not configured"
	case q.Limit > 0 && used >= int64(q.Limit):
		u.Warning = "limit reached"
	case u.Percentage >= usageWarningPercent:
		u.Warning = "approaching limit"
	}
	return u
}
