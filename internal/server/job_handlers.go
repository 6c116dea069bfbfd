package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/placeshare/placeshare/internal/usecase"
)

type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  *string         `json:"started_at,omitempty"`
	FinishedAt *string         `json:"finished_at,omitempty"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type ListJobsRequest struct {
	Skip   int    `query:"skip" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at started_at finished_at"`
	SortIn string `query:"sort_in" validate:"omitempty,oneof=asc desc ASC DESC"`

	Types    []string `query:"types"`
	Statuses []string `query:"statuses" validate:"omitempty,dive,oneof=PENDING IN_PROGRESS COMPLETED FAILED"`
}

func (s *Server) ListJobs(ctx echo.Context) error {
	var req ListJobsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	jobs, total, err := s.server.ListJobs(
		ctx.Request().Context(),
		usecase.ListJobsOption{
			Skip:     req.Skip,
			Limit:    req.Limit,
			SortBy:   req.SortBy,
			SortIn:   strings.ToUpper(req.SortIn),
			Types:    req.Types,
			Statuses: req.Statuses,
		})
	if err != nil {
		return fail(ctx, err)
	}

	list := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		j := Job{
			ID:        job.ID.String(),
			Type:      job.Type,
			Status:    job.Status,
			Error:     job.Error,
			CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if len(job.Result) > 0 {
			j.Result = json.RawMessage(job.Result)
		}
		if job.StartedAt != nil {
			tmp := job.StartedAt.UTC().Format(time.RFC3339)
			j.StartedAt = &tmp
		}
		if job.FinishedAt != nil {
			tmp := job.FinishedAt.UTC().Format(time.RFC3339)
			j.FinishedAt = &tmp
		}
		list = append(list, j)
	}

	return ctx.JSON(200, Res{
		Data: list,
		Meta: &Meta{
			Total: total,
			Skip:  req.Skip,
			Limit: req.Limit,
		},
	})
}

func (s *Server) ScheduleReconcile(ctx echo.Context) error {
	if err := s.server.ScheduleReconcile(ctx.Request().Context()); err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(http.StatusAccepted, Res{Message: "Reconcile scheduled."})
}
