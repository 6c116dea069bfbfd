package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/placeshare/placeshare/internal/usecase"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	assetCleanupFailures, _ = meter.Int64Counter(
		"placeshare.asset.cleanup_failures",
		metric.WithDescription("Asset removals that failed on a best-effort path"),
	)
	placesCreated, _ = meter.Int64Counter(
		"placeshare.places.created",
		metric.WithDescription("Places committed by CreatePlace"),
	)
)

func New(
	repo Repository,
	geocoder Geocoder,
	assets AssetStore,
	identity IdentityProvider,
	queue TaskQueue,
	logger *slog.Logger,
) Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return Usecase{
		repo:       repo,
		geocoder:   geocoder,
		assets:     assets,
		identity:   identity,
		queue:      queue,
		logger:     logger,
		sweepGrace: time.Hour,
	}
}

// WithAssetSweepGrace sets how old an unreferenced stored object must be
// before Reconcile removes it.
func (u Usecase) WithAssetSweepGrace(d time.Duration) Usecase {
	u.sweepGrace = d
	return u
}

type Repository interface {
	Health() map[string]string
	Close() error

	// RunInTx calls fn with a Repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx Repository) error) error

	GetPlaceByID(context.Context, uuid.UUID, GetPlaceOption) (Place, error)
	CreatePlace(context.Context, Place) (Place, error)
	UpdatePlace(context.Context, Place) (Place, error)
	DeletePlace(context.Context, uuid.UUID) error
	CountPlacesByImage(context.Context, string) (int64, error)

	ListUsers(context.Context) ([]User, error)
	GetUserByID(context.Context, uuid.UUID, GetUserOption) (User, error)
	GetUserByEmail(context.Context, string) (User, error)
	CreateUser(context.Context, User) (User, error)
	AppendUserPlace(ctx context.Context, userID, placeID uuid.UUID) error
	RemoveUserPlace(ctx context.Context, userID, placeID uuid.UUID) error

	ListOrphanedPlaces(context.Context) ([]Place, error)
	ListUnlinkedPlaces(context.Context) ([]Place, error)
	ListDanglingPlaceRefs(context.Context) ([]PlaceRef, error)
	ListPlaceImages(context.Context) ([]string, error)

	CreateJob(context.Context, Job) (Job, error)
	UpdateJob(context.Context, Job) (Job, error)
	ListJobs(context.Context, ListJobsOption) ([]Job, int, error)
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (Location, error)
}

// AssetStore owns uploaded image files.
type AssetStore interface {
	Accept(ctx context.Context, r io.Reader, contentType string) (Asset, error)
	Remove(ctx context.Context, path string) error
	List(ctx context.Context) ([]StoredObject, error)
	URL(path string) string
}

type IdentityProvider interface {
	IssueToken(userID uuid.UUID) (string, error)
	VerifyToken(token string) (uuid.UUID, error)
}

type TaskQueue interface {
	EnqueueAssetRemoval(ctx context.Context, path string) error
	EnqueueReconcile(ctx context.Context) error
}

type Usecase struct {
	repo     Repository
	geocoder Geocoder
	assets   AssetStore
	identity IdentityProvider
	queue    TaskQueue
	logger   *slog.Logger

	sweepGrace time.Duration
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

func (u Usecase) Close() error {
	return u.repo.Close()
}
