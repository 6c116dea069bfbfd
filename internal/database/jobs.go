package database

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/placeshare/placeshare/internal/usecase"
)

type Job struct {
	ID         uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	Type       string         `gorm:"column:type;type:varchar(255);NOT NULL;index"`
	Status     string         `gorm:"column:status;type:varchar(255);NOT NULL"`
	Result     datatypes.JSON `gorm:"column:result"`
	Error      string         `gorm:"column:error;type:text"`
	StartedAt  *time.Time     `gorm:"column:started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (s *service) CreateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	j := Job{
		ID:        job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Result:    datatypes.JSON(job.Result),
		StartedAt: job.StartedAt,
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}

	if err := s.db.WithContext(ctx).Create(&j).Error; err != nil {
		return usecase.Job{}, storeErr(err, "job_not_created", "create job")
	}
	return j.ConvertToUsecase(), nil
}

func (s *service) ListJobs(ctx context.Context, opt usecase.ListJobsOption) ([]usecase.Job, int, error) {
	var (
		jobs  []Job
		count int64
	)

	db := s.db.Model([]Job{}).WithContext(ctx)

	if opt.Types != nil {
		db = db.Where("type IN ?", opt.Types)
	}
	if opt.Statuses != nil {
		db = db.Where("status IN ?", opt.Statuses)
	}

	var (
		orderIn = "DESC"
		orderBy = "created_at"
	)

	if slices.Contains([]string{"ASC", "DESC"}, opt.SortIn) {
		orderIn = opt.SortIn
	}
	if slices.Contains([]string{"created_at", "updated_at", "started_at", "finished_at"}, opt.SortBy) {
		orderBy = opt.SortBy
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, storeErr(err, "jobs_not_listed", "count jobs")
	}

	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: orderIn == "DESC"})
	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if opt.Skip > 0 {
		db = db.Offset(opt.Skip)
	}

	if err := db.Find(&jobs).Error; err != nil {
		return nil, 0, storeErr(err, "jobs_not_listed", "list jobs")
	}

	ujobs := make([]usecase.Job, 0, len(jobs))
	for _, job := range jobs {
		ujobs = append(ujobs, job.ConvertToUsecase())
	}
	return ujobs, int(count), nil
}

func (s *service) UpdateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	res := s.db.
		WithContext(ctx).
		Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(Job{
			Status:     job.Status,
			Result:     datatypes.JSON(job.Result),
			Error:      job.Error,
			StartedAt:  job.StartedAt,
			FinishedAt: job.FinishedAt,
		})
	if res.Error != nil {
		return usecase.Job{}, storeErr(res.Error, "job_not_updated", "update job")
	}
	if res.RowsAffected == 0 {
		return usecase.Job{}, notFound("job_not_found", "job "+job.ID.String())
	}
	return job, nil
}

// Convert core model to usecase model
func (j Job) ConvertToUsecase() usecase.Job {
	return usecase.Job{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		Result:     []byte(j.Result),
		Error:      j.Error,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
