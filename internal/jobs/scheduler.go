package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/config"
	"github.com/takuyakubo/knowledge-system/internal/tasks"
)

// Scheduler enqueues maintenance tasks on the worker stream so a single
// worker fleet does the actual deleting.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	cfg    config.JobsConfig
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		stream: stream,
		cfg:    cfg,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.SessionsCleanupSpec, s.enqueueSessionsCleanup); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.FilesCleanupSpec, s.enqueueFilesCleanup); err != nil {
		return err
	}
	// Counts drift as content moves between categories; refresh hourly.
	if _, err := s.cron.AddFunc("0 15 * * * *", s.enqueueCountsRefresh); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for in-flight jobs, but not forever.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) enqueueSessionsCleanup() {
	if err := s.enqueueTask(tasks.TaskSessionsCleanup); err != nil {
		s.log.Error().Err(err).Msg("enqueue sessions cleanup failed")
	}
}

func (s *Scheduler) enqueueFilesCleanup() {
	if err := s.enqueueTask(tasks.TaskFilesCleanup); err != nil {
		s.log.Error().Err(err).Msg("enqueue files cleanup failed")
	}
}

func (s *Scheduler) enqueueCountsRefresh() {
	if err := s.enqueueTask(tasks.TaskCountsRefresh); err != nil {
		s.log.Error().Err(err).Msg("enqueue counts refresh failed")
	}
}

func (s *Scheduler) enqueueTask(taskType string) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":         taskType,
			"requested_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	return err
}
