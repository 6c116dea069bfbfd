package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/database"
	"github.com/placeshare/placeshare/internal/filestorage"
	"github.com/placeshare/placeshare/internal/queue/handlers"
	"github.com/placeshare/placeshare/internal/usecase"
)

const reconcileUniqueTTL = 30 * time.Minute

// Worker represents a worker application with all its dependencies
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	client *Client
	repo   usecase.Repository
	logger *slog.Logger
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(logger *slog.Logger) (*Worker, error) {
	logger.Info("Initializing worker dependencies...")

	repo, err := database.New(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	bucket, err := filestorage.NewBucketFromEnv(context.Background())
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create asset bucket: %w", err)
	}

	redisOpt := RedisOpt()
	client := NewClient(redisOpt, logger)

	// workers neither geocode nor issue tokens
	uc := usecase.New(repo, nil, filestorage.New(bucket), nil, client, logger).
		WithAssetSweepGrace(config.GetEnvDuration(config.ENV_KEY_ASSET_SWEEP_GRACE, time.Hour))

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: config.GetEnvInt(config.ENV_KEY_WORKER_CONCURRENCY, 10),
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
			QueueLow:      1,
		},
		Logger: NewLogger(logger),
	})

	return &Worker{
		server: srv,
		mux:    NewServeMux(handlers.NewHandlers(uc, logger), logger),
		client: client,
		repo:   repo,
		logger: logger,
	}, nil
}

// NewServeMux registers one handler per task type.
func NewServeMux(h *handlers.Handlers, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware(logger))
	mux.HandleFunc(handlers.TypeAssetRemove, h.HandleAssetRemove)
	mux.HandleFunc(usecase.JobTypeReconcile, h.HandleReconcile)
	return mux
}

func loggingMiddleware(logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, t)

			attrs := []any{
				slog.String("type", t.Type()),
				slog.Duration("latency", time.Since(start)),
			}
			if id, ok := asynq.GetTaskID(ctx); ok {
				attrs = append(attrs, slog.String("task_id", id))
			}
			if err != nil {
				logger.ErrorContext(ctx, "task failed", append(attrs, slog.String("err", err.Error()))...)
				return err
			}
			logger.InfoContext(ctx, "task processed", attrs...)
			return nil
		})
	}
}

// Start starts the worker server
func (w *Worker) Start() error {
	w.logger.Info("Worker started successfully",
		slog.Any("tasks", []string{handlers.TypeAssetRemove, usecase.JobTypeReconcile}),
	)
	return w.server.Start(w.mux)
}

// Stop stops the worker server gracefully
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.server.Shutdown()

	if err := w.client.Close(); err != nil {
		w.logger.Error("Error closing queue client", slog.String("err", err.Error()))
	}
	if err := w.repo.Close(); err != nil {
		w.logger.Error("Error closing database", slog.String("err", err.Error()))
	}
}
