package handlers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// HandleReconcile runs one reconcile pass. The report is persisted as a job
// by the usecase.
func (h *Handlers) HandleReconcile(ctx context.Context, _ *asynq.Task) error {
	if _, err := h.usecase.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}
