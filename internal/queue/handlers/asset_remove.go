package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleAssetRemove retries removal of an image a workflow failed to delete.
func (h *Handlers) HandleAssetRemove(ctx context.Context, task *asynq.Task) error {
	var payload AssetRemovePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Path == "" {
		return fmt.Errorf("empty asset path: %w", asynq.SkipRetry)
	}

	if err := h.usecase.RemoveAsset(ctx, payload.Path); err != nil {
		return fmt.Errorf("remove asset %s: %w", payload.Path, err)
	}

	h.logger.InfoContext(ctx, "asset removed", slog.String("path", payload.Path))
	return nil
}
