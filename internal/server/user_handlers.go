package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/placeshare/placeshare/internal/usecase"
)

type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Places    []string `json:"places"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

func toUser(u usecase.User) User {
	places := make([]string, 0, len(u.Places))
	for _, id := range u.Places {
		places = append(places, id.String())
	}
	return User{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Places:    places,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) ListUsers(ctx echo.Context) error {
	users, err := s.server.ListUsers(ctx.Request().Context())
	if err != nil {
		return fail(ctx, err)
	}

	list := make([]User, 0, len(users))
	for _, u := range users {
		list = append(list, toUser(u))
	}

	return ctx.JSON(200, Res{
		Data: list,
		Meta: &Meta{Total: len(list), Limit: len(list)},
	})
}

type AuthResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) Signup(ctx echo.Context) error {
	var req SignupRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	res, err := s.server.Signup(ctx.Request().Context(), usecase.SignupCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, Res{Data: AuthResponse{
		UserID: res.User.ID.String(),
		Email:  res.User.Email,
		Token:  res.Token,
	}})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) Login(ctx echo.Context) error {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	res, err := s.server.Login(ctx.Request().Context(), usecase.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.JSON(200, Res{Data: AuthResponse{
		UserID: res.User.ID.String(),
		Email:  res.User.Email,
		Token:  res.Token,
	}})
}
