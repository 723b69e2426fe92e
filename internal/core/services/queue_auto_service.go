package services

import (
	"context"
	"time"

	"clinicdesk/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ============================================================
// Background jobs: stale queue close + refresh token purge
// ============================================================

const jobTimeout = 2 * time.Minute

// QueueAutoService runs scheduled housekeeping on a robfig/cron scheduler
type QueueAutoService struct {
	queueService *QueueService
	authService  *AuthService
	cfg          config.CronConfig
	cron         *cron.Cron
}

// NewQueueAutoService creates a new auto service
func NewQueueAutoService(queueService *QueueService, authService *AuthService, cfg config.CronConfig) *QueueAutoService {
	return &QueueAutoService{
		queueService: queueService,
		authService:  authService,
		cfg:          cfg,
		cron:         cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{}))),
	}
}

// Start registers the jobs and starts the scheduler
func (s *QueueAutoService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.StaleQueueSpec, s.closeStaleQueues); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.TokenPurgeSpec, s.purgeExpiredTokens); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().
		Str("stale_queue", s.cfg.StaleQueueSpec).
		Str("token_purge", s.cfg.TokenPurgeSpec).
		Msg("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *QueueAutoService) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *QueueAutoService) closeStaleQueues() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.queueService.CloseStaleQueues(ctx)
	if err != nil {
		log.Error().Err(err).Msg("stale queue job failed")
		return
	}
	if n > 0 {
		log.Info().Int("closed", n).Msg("stale queues closed")
	}
}

func (s *QueueAutoService) purgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.authService.PurgeExpiredTokens(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("token purge job failed")
		return
	}
	log.Info().Int64("deleted", n).Msg("expired refresh tokens purged")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
