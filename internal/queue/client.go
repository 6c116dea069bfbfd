package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/queue/handlers"
	"github.com/placeshare/placeshare/internal/usecase"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"

	assetRemoveMaxRetry = 10
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client wraps asynq.Client for enqueuing tasks
// implements usecase.TaskQueue
type Client struct {
	client enqueuer
	logger *slog.Logger
}

// RedisOpt reads the REDIS_* environment.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: fmt.Sprintf("%s:%s",
			config.GetEnv(config.ENV_KEY_REDIS_HOST, "localhost"),
			config.GetEnv(config.ENV_KEY_REDIS_PORT, "6379"),
		),
		Password: config.GetEnv(config.ENV_KEY_REDIS_PASSWORD, ""),
	}
}

// NewClient creates a new queue client
func NewClient(opt asynq.RedisClientOpt, logger *slog.Logger) *Client {
	return &Client{
		client: asynq.NewClient(opt),
		logger: logger,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueAssetRemoval schedules a retry of a failed image removal.
func (c *Client) EnqueueAssetRemoval(ctx context.Context, path string) error {
	payload, err := json.Marshal(handlers.AssetRemovePayload{Path: path})
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return c.enqueue(ctx, asynq.NewTask(handlers.TypeAssetRemove, payload),
		asynq.Queue(QueueLow),
		asynq.MaxRetry(assetRemoveMaxRetry),
	)
}

// EnqueueReconcile schedules a reconcile run. At most one run is pending at
// a time.
func (c *Client) EnqueueReconcile(ctx context.Context) error {
	return c.enqueue(ctx, asynq.NewTask(usecase.JobTypeReconcile, nil),
		asynq.Queue(QueueDefault),
		asynq.Unique(reconcileUniqueTTL),
	)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}

	c.logger.InfoContext(ctx, "enqueued task",
		slog.String("task_id", info.ID),
		slog.String("type", task.Type()),
		slog.String("queue", info.Queue),
	)
	return nil
}
