package handlers

import (
	"context"
	"log/slog"

	"github.com/placeshare/placeshare/internal/usecase"
)

const TypeAssetRemove = "asset:remove"

// Usecase is the part of usecase.Usecase the worker drives.
type Usecase interface {
	RemoveAsset(ctx context.Context, path string) error
	Reconcile(ctx context.Context) (usecase.ReconcileReport, error)
}

// Handlers contains all queue task handlers
type Handlers struct {
	usecase Usecase
	logger  *slog.Logger
}

func NewHandlers(uc Usecase, logger *slog.Logger) *Handlers {
	return &Handlers{
		usecase: uc,
		logger:  logger,
	}
}

type AssetRemovePayload struct {
	Path string `json:"path"`
}
