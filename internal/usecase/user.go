package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Places       []uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time

	PlaceList []Place
}

type GetUserOption struct {
	IncludePlaces bool
}

func (u Usecase) ListUsers(ctx context.Context) ([]User, error) {
	users, err := u.repo.ListUsers(ctx)
	if err != nil {
		u.logFailure(ctx, "ListUsers", err)
		return nil, surface(err, "", "Fetching users failed, please try again later.")
	}

	list := make([]User, 0, len(users))
	for _, user := range users {
		user.PasswordHash = ""
		list = append(list, user)
	}
	return list, nil
}
