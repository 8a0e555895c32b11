package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

// CacheCleanupSchedule runs the expired cache sweep at the top of every hour.
const CacheCleanupSchedule = "@hourly"

const jobTimeout = 10 * time.Minute

// CacheCleaner removes expired cache entries.
type CacheCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// SchedulerConfig configures the in-process cron jobs.
type SchedulerConfig struct {
	// SyncSchedule is a standard cron expression; empty disables periodic sync.
	SyncSchedule string
	UpcomingDays int
	PastDays     int
	Sync         logic.SyncService
	Cache        CacheCleaner
	Logger       *zap.Logger
}

type Scheduler struct {
	cron   *cron.Cron
	config SchedulerConfig
	logger *zap.SugaredLogger
	// running serializes sync runs triggered by cron and by RunNow.
	running sync.Mutex
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger.Sugar()
	c := cron.New(cron.WithLogger(cronLogger{logger}), cron.WithChain(cron.Recover(cronLogger{logger})))
	return &Scheduler{cron: c, config: cfg, logger: logger}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	if s.config.SyncSchedule != "" {
		if _, err := s.cron.AddFunc(s.config.SyncSchedule, s.runSync); err != nil {
			s.logger.Errorw("Error scheduling sync job", "schedule", s.config.SyncSchedule, "error", err)
			return err
		}
	}
	if s.config.Cache != nil {
		if _, err := s.cron.AddFunc(CacheCleanupSchedule, s.runCacheCleanup); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Infow("Cron scheduler started", "jobs", len(s.cron.Entries()), "syncSchedule", s.config.SyncSchedule)
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	<-s.cron.Stop().Done()
	s.logger.Info("Cron scheduler stopped")
}

// RunNow runs the upcoming and past sync immediately. Past sync is skipped
// when PastDays is zero.
func (s *Scheduler) RunNow(ctx context.Context) (*models.SyncResponse, error) {
	s.running.Lock()
	defer s.running.Unlock()

	upcoming, err := s.config.Sync.SyncUpcoming(ctx, s.config.UpcomingDays)
	if err != nil {
		return nil, err
	}
	report := &models.SyncResponse{Upcoming: *upcoming}
	if s.config.PastDays > 0 {
		past, err := s.config.Sync.SyncPast(ctx, s.config.PastDays)
		if err != nil {
			return report, err
		}
		report.Past = past
	}
	return report, nil
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.logger.Info("Running scheduled sync job...")
	report, err := s.RunNow(ctx)
	if err != nil {
		s.logger.Errorw("Scheduled sync failed", "error", err)
		return
	}
	past := 0
	if report.Past != nil {
		past = report.Past.Upserted
	}
	s.logger.Infow("Scheduled sync completed", "upcoming", report.Upcoming.Upserted, "past", past)
}

func (s *Scheduler) runCacheCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.config.Cache.CleanExpired(ctx)
	if err != nil {
		s.logger.Warnw("Cache cleanup failed", "error", err)
		return
	}
	s.logger.Infow("Expired cache entries removed", "count", n)
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
