package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PlaceRef is an entry of a user's places list.
type PlaceRef struct {
	UserID  uuid.UUID
	PlaceID uuid.UUID
}

type ReconcileReport struct {
	OrphanedPlaces int `json:"orphaned_places"`
	UnlinkedPlaces int `json:"unlinked_places"`
	DanglingRefs   int `json:"dangling_refs"`
	OrphanAssets   int `json:"orphan_assets"`
	Failed         int `json:"failed"`
}

// Reconcile repairs the Place/User invariants and removes unreferenced
// images. Each run is recorded as a job.
func (u Usecase) Reconcile(ctx context.Context) (ReconcileReport, error) {
	ctx, span := tracer.Start(ctx, "usecase.Reconcile")
	defer span.End()

	started := time.Now()
	job, err := u.repo.CreateJob(ctx, Job{
		Type:      JobTypeReconcile,
		Status:    JobStatusInProgress,
		StartedAt: &started,
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("create reconcile job: %w", err)
	}

	report, runErr := u.reconcile(ctx)

	finished := time.Now()
	job.FinishedAt = &finished
	job.Status = JobStatusCompleted
	if runErr != nil {
		job.Status = JobStatusFailed
		job.Error = runErr.Error()
	}
	if b, err := json.Marshal(report); err == nil {
		job.Result = b
	}
	if _, err := u.repo.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		u.logger.ErrorContext(ctx, "reconcile job not updated",
			slog.String("job_id", job.ID.String()),
			slog.String("err", err.Error()),
		)
	}

	u.logger.InfoContext(ctx, "reconcile finished",
		slog.String("job_id", job.ID.String()),
		slog.Int("orphaned_places", report.OrphanedPlaces),
		slog.Int("unlinked_places", report.UnlinkedPlaces),
		slog.Int("dangling_refs", report.DanglingRefs),
		slog.Int("orphan_assets", report.OrphanAssets),
		slog.Int("failed", report.Failed),
	)
	return report, runErr
}

func (u Usecase) reconcile(ctx context.Context) (ReconcileReport, error) {
	var (
		report   ReconcileReport
		orphaned []Place
		unlinked []Place
		dangling []PlaceRef
		images   []string
	)

	// Objects are listed before images so that a place committed in
	// between is still seen as a reference.
	objects, err := u.assets.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list assets: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orphaned, err = u.repo.ListOrphanedPlaces(gctx)
		return err
	})
	g.Go(func() (err error) {
		unlinked, err = u.repo.ListUnlinkedPlaces(gctx)
		return err
	})
	g.Go(func() (err error) {
		dangling, err = u.repo.ListDanglingPlaceRefs(gctx)
		return err
	})
	g.Go(func() (err error) {
		images, err = u.repo.ListPlaceImages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("scan: %w", err)
	}

	var errs []error
	fail := func(what, id string, err error) {
		report.Failed++
		errs = append(errs, fmt.Errorf("%s %s: %w", what, id, err))
	}

	for _, p := range orphaned {
		if err := u.repo.DeletePlace(ctx, p.ID); err != nil {
			fail("delete orphaned place", p.ID.String(), err)
			continue
		}
		u.releaseAsset(ctx, p.Image)
		report.OrphanedPlaces++
	}

	for _, p := range unlinked {
		if err := u.repo.AppendUserPlace(ctx, p.CreatorID, p.ID); err != nil {
			if KindOf(err) == KindNotFound {
				// place or creator removed since the scan
				continue
			}
			fail("link place", p.ID.String(), err)
			continue
		}
		report.UnlinkedPlaces++
	}

	for _, ref := range dangling {
		if err := u.repo.RemoveUserPlace(ctx, ref.UserID, ref.PlaceID); err != nil {
			fail("remove dangling ref", ref.PlaceID.String(), err)
			continue
		}
		report.DanglingRefs++
	}

	referenced := make(map[string]struct{}, len(images))
	for _, img := range images {
		referenced[img] = struct{}{}
	}

	cutoff := time.Now().Add(-u.sweepGrace)
	for _, obj := range objects {
		if _, ok := referenced[obj.Path]; ok || obj.ModTime.After(cutoff) {
			continue
		}
		if err := u.assets.Remove(ctx, obj.Path); err != nil {
			fail("remove orphan asset", obj.Path, err)
			continue
		}
		report.OrphanAssets++
	}

	return report, errors.Join(errs...)
}
