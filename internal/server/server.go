package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/database"
	"github.com/placeshare/placeshare/internal/filestorage"
	"github.com/placeshare/placeshare/internal/geocoding"
	"github.com/placeshare/placeshare/internal/identity"
	"github.com/placeshare/placeshare/internal/queue"
	"github.com/placeshare/placeshare/internal/usecase"
)

// Service is what the HTTP layer needs from the usecase.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	GetPlaceByID(context.Context, uuid.UUID) (usecase.Place, error)
	ListPlacesByUser(context.Context, uuid.UUID) ([]usecase.Place, error)
	CreatePlace(context.Context, usecase.CreatePlaceCommand) (usecase.Place, error)
	UpdatePlace(context.Context, usecase.UpdatePlaceCommand) (usecase.Place, error)
	DeletePlace(ctx context.Context, placeID, userID uuid.UUID) (usecase.Place, error)

	ListUsers(context.Context) ([]usecase.User, error)
	Signup(context.Context, usecase.SignupCommand) (usecase.AuthResult, error)
	Login(context.Context, usecase.LoginCommand) (usecase.AuthResult, error)
	VerifyToken(context.Context, string) (uuid.UUID, error)

	ListJobs(context.Context, usecase.ListJobsOption) ([]usecase.Job, int, error)
	ScheduleReconcile(context.Context) error
}

type Server struct {
	server    Service
	validator *validator.Validate
	logger    *slog.Logger

	// optional
	redis     *redis.Client
	uploadDir string
}

// App is the API process: the HTTP server plus the resources it closes on
// shutdown.
type App struct {
	http    *http.Server
	logger  *slog.Logger
	closers []func() error
}

func NewApp(ctx context.Context, logger *slog.Logger) (*App, error) {
	repo, err := database.New(logger)
	if err != nil {
		return nil, err
	}

	bucket, err := filestorage.NewBucketFromEnv(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}

	idp, err := identity.NewFromEnv()
	if err != nil {
		repo.Close()
		return nil, err
	}

	redisOpt := queue.RedisOpt()
	qc := queue.NewClient(redisOpt, logger)
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisOpt.Addr,
		Password: redisOpt.Password,
	})

	uc := usecase.New(repo, geocoding.NewFromEnv(), filestorage.New(bucket), idp, qc, logger)

	s := &Server{
		server:    uc,
		validator: validator.New(),
		logger:    logger,
		redis:     rdb,
	}
	if local, ok := bucket.(*filestorage.LocalStorage); ok {
		s.uploadDir = local.Dir()
	}

	port := config.GetEnvInt(config.ENV_KEY_PORT, 8080)
	return &App{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      s.RegisterRoutes(),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		logger:  logger,
		closers: []func() error{qc.Close, rdb.Close, repo.Close},
	}, nil
}

func (a *App) Addr() string {
	return a.http.Addr
}

func (a *App) ListenAndServe() error {
	if err := a.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.http.Shutdown(ctx)
	for _, c := range a.closers {
		err = errors.Join(err, c())
	}
	return err
}
