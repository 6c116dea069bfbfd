package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/usecase"
)

// implements usecase.Repository
type service struct {
	db *gorm.DB
}

// New connects to PostgreSQL using the DB_* environment and migrates the
// schema.
func New(l *slog.Logger) (*service, error) {
	var (
		dbname = config.GetEnv(config.ENV_KEY_DB_DATABASE, "placeshare")
		dbpass = config.GetEnv(config.ENV_KEY_DB_PASSWORD, "")
		dbuser = config.GetEnv(config.ENV_KEY_DB_USER, "postgres")
		dbport = config.GetEnv(config.ENV_KEY_DB_PORT, "5432")
		dbhost = config.GetEnv(config.ENV_KEY_DB_HOST, "localhost")
	)
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbuser, dbpass, dbhost, dbport, dbname)

	gormDB, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:                                   NewSlogGormLogger(l),
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := gormDB.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}

	db, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	if m := config.GetEnvInt(config.ENV_KEY_DB_MAX_OPEN_CONNECTIONS, 0); m > 0 {
		db.SetMaxOpenConns(m)
	}

	// migrate the schema
	if err := gormDB.AutoMigrate(
		User{},
		Place{},
		Job{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	l.Info("connected to database", slog.String("database", dbname), slog.String("host", dbhost))
	return &service{db: gormDB}, nil
}

// NewWithDB wraps an already opened connection.
func NewWithDB(db *gorm.DB) *service {
	return &service{db: db}
}

// RunInTx rolls back when fn fails. A failure after fn succeeded comes from
// the commit and is tagged usecase.CodeCommitUnknown.
func (s *service) RunInTx(ctx context.Context, fn func(tx usecase.Repository) error) error {
	var (
		ran   bool
		fnErr error
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ran = true
		fnErr = fn(&service{db: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if ran && fnErr == nil {
		return usecase.NewError(usecase.KindUnavailable, usecase.CodeCommitUnknown, "transaction commit failed", err)
	}
	var ue *usecase.Error
	if errors.As(err, &ue) {
		return err
	}
	return storeErr(err, "tx", "transaction")
}

// storeErr wraps a gorm failure as a repository error: a missing record is
// NotFound, anything else is Unavailable.
func storeErr(err error, code, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usecase.NewError(usecase.KindNotFound, code, what+" not found", err)
	}
	return usecase.NewError(usecase.KindUnavailable, "store_unavailable", what+" failed", err)
}

func notFound(code, what string) error {
	return usecase.NewError(usecase.KindNotFound, code, what+" not found", gorm.ErrRecordNotFound)
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	db, err := s.db.DB()
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
