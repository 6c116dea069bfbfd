package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeReconcile = "places:reconcile"

	JobStatusPending    = "PENDING"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

type Job struct {
	ID         uuid.UUID
	Type       string
	Status     string
	Result     []byte
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ListJobsOption struct {
	Skip   int
	Limit  int
	SortBy string
	SortIn string

	Types    []string
	Statuses []string
}

func (u Usecase) ListJobs(ctx context.Context, opt ListJobsOption) ([]Job, int, error) {
	jobs, total, err := u.repo.ListJobs(ctx, opt)
	if err != nil {
		u.logFailure(ctx, "ListJobs", err)
		return nil, 0, surface(err, "", "Fetching jobs failed, please try again later.")
	}
	return jobs, total, nil
}

// ScheduleReconcile queues a reconcile run for the worker.
func (u Usecase) ScheduleReconcile(ctx context.Context) error {
	const failed = "Could not schedule the job, please try again later."
	if u.queue == nil {
		return NewError(KindUnavailable, "queue_unavailable", failed, nil)
	}
	if err := u.queue.EnqueueReconcile(ctx); err != nil {
		u.logFailure(ctx, "ScheduleReconcile", err)
		return NewError(KindUnavailable, "queue_unavailable", failed, err)
	}
	return nil
}
