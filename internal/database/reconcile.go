package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/placeshare/placeshare/internal/usecase"
)

// ListOrphanedPlaces returns places whose creator no longer exists.
func (s *service) ListOrphanedPlaces(ctx context.Context) ([]usecase.Place, error) {
	var places []Place
	if err := s.db.
		WithContext(ctx).
		Joins("LEFT JOIN users ON users.id = places.creator_id").
		Where("users.id IS NULL").
		Find(&places).Error; err != nil {
		return nil, storeErr(err, "places_not_listed", "list orphaned places")
	}
	return convertPlaces(places), nil
}

// ListUnlinkedPlaces returns places missing from their creator's list.
func (s *service) ListUnlinkedPlaces(ctx context.Context) ([]usecase.Place, error) {
	var places []Place
	if err := s.db.
		WithContext(ctx).
		Joins("JOIN users ON users.id = places.creator_id").
		Where("NOT (places.id = ANY(users.places))").
		Find(&places).Error; err != nil {
		return nil, storeErr(err, "places_not_listed", "list unlinked places")
	}
	return convertPlaces(places), nil
}

// ListDanglingPlaceRefs returns user list entries that point at no place.
func (s *service) ListDanglingPlaceRefs(ctx context.Context) ([]usecase.PlaceRef, error) {
	var rows []struct {
		UserID  uuid.UUID
		PlaceID uuid.UUID
	}
	if err := s.db.
		WithContext(ctx).
		Raw(`SELECT users.id AS user_id, ref AS place_id
			FROM users
			CROSS JOIN LATERAL unnest(users.places) AS ref
			LEFT JOIN places ON places.id = ref
			WHERE places.id IS NULL`).
		Scan(&rows).Error; err != nil {
		return nil, storeErr(err, "refs_not_listed", "list dangling refs")
	}

	refs := make([]usecase.PlaceRef, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, usecase.PlaceRef{UserID: r.UserID, PlaceID: r.PlaceID})
	}
	return refs, nil
}

func (s *service) ListPlaceImages(ctx context.Context) ([]string, error) {
	var images []string
	if err := s.db.WithContext(ctx).Model(&Place{}).Distinct().Pluck("image", &images).Error; err != nil {
		return nil, storeErr(err, "images_not_listed", "list place images")
	}
	return images, nil
}

func convertPlaces(places []Place) []usecase.Place {
	uplaces := make([]usecase.Place, 0, len(places))
	for _, p := range places {
		uplaces = append(uplaces, p.ConvertToUsecase())
	}
	return uplaces
}
