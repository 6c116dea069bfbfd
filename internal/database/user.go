package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/placeshare/placeshare/internal/usecase"
)

type User struct {
	ID           uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	Name         string         `gorm:"column:name;type:varchar(255);not null"`
	Email        string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;type:varchar(255);not null"`
	Places       pq.StringArray `gorm:"column:places;type:uuid[];not null"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (s *service) ListUsers(ctx context.Context) ([]usecase.User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, storeErr(err, "users_not_listed", "list users")
	}

	uusers := make([]usecase.User, 0, len(users))
	for _, u := range users {
		uusers = append(uusers, u.ConvertToUsecase())
	}
	return uusers, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID, opt usecase.GetUserOption) (usecase.User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return usecase.User{}, storeErr(err, "user_not_found", "user "+id.String())
	}

	uu := u.ConvertToUsecase()
	if !opt.IncludePlaces || len(uu.Places) == 0 {
		return uu, nil
	}

	var places []Place
	if err := s.db.WithContext(ctx).Where("id IN ?", uu.Places).Find(&places).Error; err != nil {
		return usecase.User{}, storeErr(err, "places_not_listed", "list user places")
	}

	byID := make(map[uuid.UUID]Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}
	// keep the order of the user's list; refs to missing places are skipped
	uu.PlaceList = make([]usecase.Place, 0, len(places))
	for _, pid := range uu.Places {
		if p, ok := byID[pid]; ok {
			uu.PlaceList = append(uu.PlaceList, p.ConvertToUsecase())
		}
	}
	return uu, nil
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (usecase.User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return usecase.User{}, storeErr(err, "user_not_found", "user")
	}
	return u.ConvertToUsecase(), nil
}

func (s *service) CreateUser(ctx context.Context, user usecase.User) (usecase.User, error) {
	u := User{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Places:       toStringArray(user.Places),
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return usecase.User{}, usecase.NewError(usecase.KindValidation, usecase.CodeUserExists, "email already registered", err)
		}
		return usecase.User{}, storeErr(err, "user_not_created", "create user")
	}
	return u.ConvertToUsecase(), nil
}

// AppendUserPlace adds placeID to the user's list unless it is already
// there or the place no longer exists. The update is a single statement so
// concurrent appends for the same user do not overwrite each other.
func (s *service) AppendUserPlace(ctx context.Context, userID, placeID uuid.UUID) error {
	res := s.db.
		WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND NOT (? = ANY(places)) AND EXISTS (SELECT 1 FROM places WHERE places.id = ?)", userID, placeID, placeID).
		UpdateColumn("places", gorm.Expr("array_append(places, ?)", placeID))
	if res.Error != nil {
		return storeErr(res.Error, "user_not_updated", "append user place")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// nothing updated; find out which guard held
	var n int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return storeErr(err, "user_not_updated", "append user place")
	}
	if n == 0 {
		return notFound("user_not_found", "user "+userID.String())
	}
	if err := s.db.WithContext(ctx).Model(&Place{}).Where("id = ?", placeID).Count(&n).Error; err != nil {
		return storeErr(err, "user_not_updated", "append user place")
	}
	if n == 0 {
		return notFound("place_not_found", "place "+placeID.String())
	}
	return nil
}

// RemoveUserPlace drops every occurrence of placeID from the user's list.
func (s *service) RemoveUserPlace(ctx context.Context, userID, placeID uuid.UUID) error {
	res := s.db.
		WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		UpdateColumn("places", gorm.Expr("array_remove(places, ?)", placeID))
	if res.Error != nil {
		return storeErr(res.Error, "user_not_updated", "remove user place")
	}
	if res.RowsAffected == 0 {
		return notFound("user_not_found", "user "+userID.String())
	}
	return nil
}

func toStringArray(ids []uuid.UUID) pq.StringArray {
	arr := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, id.String())
	}
	return arr
}

// Convert core model to usecase model
func (u User) ConvertToUsecase() usecase.User {
	places := make([]uuid.UUID, 0, len(u.Places))
	for _, s := range u.Places {
		if id, err := uuid.Parse(s); err == nil {
			places = append(places, id)
		}
	}
	return usecase.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Places:       places,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
