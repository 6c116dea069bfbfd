package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Location struct {
	Lat float64
	Lng float64
}

type Place struct {
	ID          uuid.UUID
	Title       string
	Description string
	Address     string
	Location    Location
	Image       string
	ImageURL    string
	ImageColors []byte
	CreatorID   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Creator *User
}

type GetPlaceOption struct {
	IncludeCreator bool
}

// Upload is an image handed over by the upload layer.
type Upload struct {
	Reader      io.Reader
	ContentType string
}

type CreatePlaceCommand struct {
	UserID      uuid.UUID
	Title       string
	Description string
	Address     string
	Image       Upload
}

type UpdatePlaceCommand struct {
	PlaceID     uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
}

func (u Usecase) GetPlaceByID(ctx context.Context, id uuid.UUID) (Place, error) {
	place, err := u.repo.GetPlaceByID(ctx, id, GetPlaceOption{})
	if err != nil {
		u.logFailure(ctx, "GetPlaceByID", err)
		return Place{}, surface(err,
			"Could not find a place for the provided id.",
			"Something went wrong, could not find a place.")
	}
	return u.withImageURL(place), nil
}

// ListPlacesByUser returns the user's places in insertion order. A user
// without places is reported as NotFound, same as an unknown user.
func (u Usecase) ListPlacesByUser(ctx context.Context, userID uuid.UUID) ([]Place, error) {
	const notFound = "Could not find places for the provided user id."

	user, err := u.repo.GetUserByID(ctx, userID, GetUserOption{IncludePlaces: true})
	if err != nil {
		u.logFailure(ctx, "ListPlacesByUser", err)
		return nil, surface(err, notFound, "Fetching places failed, please try again later")
	}
	if len(user.PlaceList) == 0 {
		return nil, NewError(KindNotFound, "places_not_found", notFound, nil)
	}

	places := make([]Place, 0, len(user.PlaceList))
	for _, p := range user.PlaceList {
		places = append(places, u.withImageURL(p))
	}
	return places, nil
}

func (u Usecase) CreatePlace(ctx context.Context, cmd CreatePlaceCommand) (Place, error) {
	const failed = "Creating place failed, please try again."

	ctx, span := tracer.Start(ctx, "usecase.CreatePlace")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", cmd.UserID.String()))

	if cmd.Image.Reader == nil {
		return Place{}, NewError(KindValidation, "image_required", "An image is required.", nil)
	}

	loc, err := u.geocoder.Resolve(ctx, cmd.Address)
	if err != nil {
		span.SetStatus(codes.Error, "geocoding failed")
		u.logFailure(ctx, "CreatePlace.Resolve", err)
		return Place{}, surface(err, failed, failed)
	}

	asset, err := u.assets.Accept(ctx, cmd.Image.Reader, cmd.Image.ContentType)
	if err != nil {
		span.SetStatus(codes.Error, "asset rejected")
		u.logFailure(ctx, "CreatePlace.Accept", err)
		return Place{}, surface(err, failed, failed)
	}

	place := Place{
		ID:          uuid.New(),
		Title:       cmd.Title,
		Description: cmd.Description,
		Address:     cmd.Address,
		Location:    loc,
		Image:       asset.Path,
		ImageColors: asset.Colors,
		CreatorID:   cmd.UserID,
	}

	// From here on the accepted asset is released on every exit except a
	// committed transaction.
	var committed, commitUnknown bool
	defer func() {
		if committed {
			return
		}
		cleanupCtx := context.WithoutCancel(ctx)
		if commitUnknown && u.placeMayExist(cleanupCtx, place.ID) {
			// commit outcome unknown; the orphan sweep collects the
			// asset later if nothing references it
			return
		}
		u.releaseAsset(cleanupCtx, asset.Path)
	}()

	if _, err := u.repo.GetUserByID(ctx, cmd.UserID, GetUserOption{}); err != nil {
		u.logFailure(ctx, "CreatePlace.GetUserByID", err)
		return Place{}, surface(err, "Could not find user for provided id", failed)
	}

	err = u.repo.RunInTx(ctx, func(tx Repository) error {
		created, err := tx.CreatePlace(ctx, place)
		if err != nil {
			return err
		}
		if err := tx.AppendUserPlace(ctx, cmd.UserID, created.ID); err != nil {
			return err
		}
		place = created
		return nil
	})
	if err != nil {
		commitUnknown = CommitUnknown(err)
		span.SetStatus(codes.Error, "transaction failed")
		u.logFailure(ctx, "CreatePlace.RunInTx", err)
		return Place{}, surface(err, "Could not find user for provided id", failed)
	}
	committed = true

	placesCreated.Add(ctx, 1)
	u.logger.InfoContext(ctx, "place created",
		slog.String("place_id", place.ID.String()),
		slog.String("user_id", cmd.UserID.String()),
	)
	return u.withImageURL(place), nil
}

// UpdatePlace changes title and description only. Address, location, image
// and creator are fixed at creation.
func (u Usecase) UpdatePlace(ctx context.Context, cmd UpdatePlaceCommand) (Place, error) {
	const failed = "Something went wrong, could not update place."

	place, err := u.repo.GetPlaceByID(ctx, cmd.PlaceID, GetPlaceOption{})
	if err != nil {
		u.logFailure(ctx, "UpdatePlace.GetPlaceByID", err)
		return Place{}, surface(err, "Could not find a place for the provided id.", failed)
	}

	if place.CreatorID != cmd.UserID {
		u.logger.InfoContext(ctx, "place update denied",
			slog.String("place_id", place.ID.String()),
			slog.String("user_id", cmd.UserID.String()),
		)
		return Place{}, NewError(KindUnauthorized, "not_place_owner", "You are not allowed to edit this place.", nil)
	}

	place.Title = cmd.Title
	place.Description = cmd.Description

	updated, err := u.repo.UpdatePlace(ctx, place)
	if err != nil {
		u.logFailure(ctx, "UpdatePlace.UpdatePlace", err)
		return Place{}, surface(err, "Could not find a place for the provided id.", failed)
	}
	return u.withImageURL(updated), nil
}

// DeletePlace removes the place and its reference in the creator's list in
// one transaction, then releases the image. The returned snapshot still
// carries the former creator.
func (u Usecase) DeletePlace(ctx context.Context, placeID, userID uuid.UUID) (Place, error) {
	const (
		notFound = "Could not find a place with the provided ID."
		failed   = "Something went wrong, could not delete place."
	)

	ctx, span := tracer.Start(ctx, "usecase.DeletePlace")
	defer span.End()
	span.SetAttributes(attribute.String("place.id", placeID.String()))

	place, err := u.repo.GetPlaceByID(ctx, placeID, GetPlaceOption{IncludeCreator: true})
	if err != nil {
		u.logFailure(ctx, "DeletePlace.GetPlaceByID", err)
		return Place{}, surface(err, notFound, failed)
	}

	if place.Creator == nil || place.Creator.ID != userID {
		if place.Creator == nil {
			u.logger.WarnContext(ctx, "place has no resolvable creator",
				slog.String("place_id", place.ID.String()),
				slog.String("creator_id", place.CreatorID.String()),
			)
		}
		return Place{}, NewError(KindUnauthorized, "not_place_owner", "You are not allowed to delete this place.", nil)
	}

	err = u.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.DeletePlace(ctx, place.ID); err != nil {
			return err
		}
		return tx.RemoveUserPlace(ctx, place.Creator.ID, place.ID)
	})
	if err != nil {
		span.SetStatus(codes.Error, "transaction failed")
		u.logFailure(ctx, "DeletePlace.RunInTx", err)
		return Place{}, surface(err, notFound, failed)
	}

	u.releaseAsset(context.WithoutCancel(ctx), place.Image)

	u.logger.InfoContext(ctx, "place deleted",
		slog.String("place_id", place.ID.String()),
		slog.String("user_id", userID.String()),
	)
	return u.withImageURL(place), nil
}

// placeMayExist is false only when the store positively reports the place
// as missing.
func (u Usecase) placeMayExist(ctx context.Context, id uuid.UUID) bool {
	_, err := u.repo.GetPlaceByID(ctx, id, GetPlaceOption{})
	return KindOf(err) != KindNotFound
}

func (u Usecase) withImageURL(p Place) Place {
	if p.Image != "" {
		p.ImageURL = u.assets.URL(p.Image)
	}
	return p
}

func (u Usecase) logFailure(ctx context.Context, op string, err error) {
	level := slog.LevelError
	switch KindOf(err) {
	case KindNotFound, KindUnauthorized, KindForbidden, KindValidation,
		KindUnsupportedMediaType, KindPayloadTooLarge, KindGeocoding:
		level = slog.LevelInfo
	}
	u.logger.Log(ctx, level, "operation failed",
		slog.String("op", op),
		slog.String("kind", KindOf(err).String()),
		slog.String("err", err.Error()),
	)
}
