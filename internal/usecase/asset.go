package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Asset is an accepted upload.
type Asset struct {
	Path        string
	ContentType string
	Size        int64
	Colors      []byte
}

// StoredObject is a file found under the managed images root.
type StoredObject struct {
	Path    string
	ModTime time.Time
}

// releaseAsset removes an image on a best-effort path. Failures are logged,
// counted and handed to the queue for retry; they never reach the caller.
func (u Usecase) releaseAsset(ctx context.Context, path string) {
	if path == "" {
		return
	}
	err := u.assets.Remove(ctx, path)
	if err == nil {
		return
	}

	assetCleanupFailures.Add(ctx, 1)
	u.logger.WarnContext(ctx, "asset cleanup failed",
		slog.String("path", path),
		slog.String("err", err.Error()),
	)

	if u.queue == nil {
		return
	}
	if err := u.queue.EnqueueAssetRemoval(ctx, path); err != nil {
		u.logger.ErrorContext(ctx, "asset cleanup retry not scheduled",
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
	}
}

// RemoveAsset is the retry path for releaseAsset. It refuses to delete an
// image that a place still references.
func (u Usecase) RemoveAsset(ctx context.Context, path string) error {
	n, err := u.repo.CountPlacesByImage(ctx, path)
	if err != nil {
		return err
	}
	if n > 0 {
		u.logger.WarnContext(ctx, "asset still referenced, skipping removal",
			slog.String("path", path),
			slog.Int64("places", n),
		)
		return nil
	}
	return u.assets.Remove(ctx, path)
}
