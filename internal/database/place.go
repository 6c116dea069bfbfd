package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/placeshare/placeshare/internal/usecase"
)

type Place struct {
	ID          uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	Title       string         `gorm:"column:title;type:varchar(255);not null"`
	Description string         `gorm:"column:description;type:text"`
	Address     string         `gorm:"column:address;type:text;not null"`
	Lat         float64        `gorm:"column:lat;type:double precision;not null"`
	Lng         float64        `gorm:"column:lng;type:double precision;not null"`
	Image       string         `gorm:"column:image;type:varchar(255);not null;index"`
	ImageColors datatypes.JSON `gorm:"column:image_colors"`
	CreatorID   uuid.UUID      `gorm:"column:creator_id;type:uuid;not null;index"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`

	Creator *User `gorm:"foreignKey:CreatorID;references:ID"`
}

func (Place) TableName() string {
	return "places"
}

func (s *service) GetPlaceByID(ctx context.Context, id uuid.UUID, opt usecase.GetPlaceOption) (usecase.Place, error) {
	var p Place

	db := s.db.WithContext(ctx)
	if opt.IncludeCreator {
		db = db.Preload("Creator")
	}

	if err := db.First(&p, "id = ?", id).Error; err != nil {
		return usecase.Place{}, storeErr(err, "place_not_found", "place "+id.String())
	}

	up := p.ConvertToUsecase()
	if p.Creator != nil {
		creator := p.Creator.ConvertToUsecase()
		up.Creator = &creator
	}
	return up, nil
}

func (s *service) CreatePlace(ctx context.Context, place usecase.Place) (usecase.Place, error) {
	p := Place{
		ID:          place.ID,
		Title:       place.Title,
		Description: place.Description,
		Address:     place.Address,
		Lat:         place.Location.Lat,
		Lng:         place.Location.Lng,
		Image:       place.Image,
		ImageColors: datatypes.JSON(place.ImageColors),
		CreatorID:   place.CreatorID,
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return usecase.Place{}, storeErr(err, "place_not_created", "create place")
	}
	return p.ConvertToUsecase(), nil
}

// UpdatePlace writes title and description only.
func (s *service) UpdatePlace(ctx context.Context, place usecase.Place) (usecase.Place, error) {
	var p Place

	res := s.db.
		WithContext(ctx).
		Model(&p).
		Clauses(clause.Returning{}).
		Where("id = ?", place.ID).
		Updates(map[string]any{
			"title":       place.Title,
			"description": place.Description,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return usecase.Place{}, storeErr(res.Error, "place_not_updated", "update place")
	}
	if res.RowsAffected == 0 {
		return usecase.Place{}, notFound("place_not_found", "place "+place.ID.String())
	}

	return p.ConvertToUsecase(), nil
}

func (s *service) DeletePlace(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Place{}, "id = ?", id)
	if res.Error != nil {
		return storeErr(res.Error, "place_not_deleted", "delete place")
	}
	if res.RowsAffected == 0 {
		return notFound("place_not_found", "place "+id.String())
	}
	return nil
}

func (s *service) CountPlacesByImage(ctx context.Context, path string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Place{}).Where("image = ?", path).Count(&n).Error; err != nil {
		return 0, storeErr(err, "places_not_counted", "count places")
	}
	return n, nil
}

// Convert core model to usecase model
func (p Place) ConvertToUsecase() usecase.Place {
	return usecase.Place{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		Location:    usecase.Location{Lat: p.Lat, Lng: p.Lng},
		Image:       p.Image,
		ImageColors: []byte(p.ImageColors),
		CreatorID:   p.CreatorID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
