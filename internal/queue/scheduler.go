package queue

import (
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/usecase"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewScheduler registers the periodic reconcile run.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s := asynq.NewScheduler(RedisOpt(), &asynq.SchedulerOpts{
		Logger: NewLogger(logger),
	})

	cronSpec := config.GetEnv(config.ENV_KEY_RECONCILE_CRON, "@every 1h")
	entryID, err := s.Register(cronSpec, asynq.NewTask(usecase.JobTypeReconcile, nil),
		asynq.Queue(QueueDefault),
		asynq.Unique(reconcileUniqueTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", usecase.JobTypeReconcile, err)
	}

	logger.Info("registered periodic task",
		slog.String("type", usecase.JobTypeReconcile),
		slog.String("cron", cronSpec),
		slog.String("entry_id", entryID),
	)
	return &Scheduler{scheduler: s, logger: logger}, nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	s.scheduler.Shutdown()
}
