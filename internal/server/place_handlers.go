package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/placeshare/placeshare/internal/usecase"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Place struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Address     string          `json:"address"`
	Location    Location        `json:"location"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"image_url,omitempty"`
	ImageColors json.RawMessage `json:"image_colors,omitempty"`
	Creator     string          `json:"creator"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

func toPlace(p usecase.Place) Place {
	place := Place{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		Location:    Location{Lat: p.Location.Lat, Lng: p.Location.Lng},
		Image:       p.Image,
		ImageURL:    p.ImageURL,
		Creator:     p.CreatorID.String(),
	}
	if len(p.ImageColors) > 0 {
		place.ImageColors = json.RawMessage(p.ImageColors)
	}
	if !p.CreatedAt.IsZero() {
		place.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		place.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return place
}

type GetPlaceByIDRequest struct {
	ID string `param:"pid" validate:"required,uuid"`
}

func (s *Server) GetPlaceByID(ctx echo.Context) error {
	var req GetPlaceByIDRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	place, err := s.server.GetPlaceByID(ctx.Request().Context(), uuid.MustParse(req.ID))
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.JSON(200, Res{Data: toPlace(place)})
}

type ListPlacesByUserRequest struct {
	UserID string `param:"uid" validate:"required,uuid"`
}

func (s *Server) ListPlacesByUser(ctx echo.Context) error {
	var req ListPlacesByUserRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	places, err := s.server.ListPlacesByUser(ctx.Request().Context(), uuid.MustParse(req.UserID))
	if err != nil {
		return fail(ctx, err)
	}

	list := make([]Place, 0, len(places))
	for _, p := range places {
		list = append(list, toPlace(p))
	}
	return ctx.JSON(200, Res{Data: list})
}

type CreatePlaceRequest struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"min=5"`
	Address     string `form:"address" validate:"required"`
}

func (s *Server) CreatePlace(ctx echo.Context) error {
	userID, ok := userIDFrom(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, Res{Error: "unauthorized", Message: "Authentication failed!"})
	}

	var req CreatePlaceRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	fh, err := ctx.FormFile("image")
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: "image_required", Message: "An image is required."})
	}
	f, err := fh.Open()
	if err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	defer f.Close()

	place, err := s.server.CreatePlace(ctx.Request().Context(), usecase.CreatePlaceCommand{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Image: usecase.Upload{
			Reader:      f,
			ContentType: fh.Header.Get("Content-Type"),
		},
	})
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, Res{Data: toPlace(place)})
}

type UpdatePlaceRequest struct {
	ID          string `param:"pid" validate:"required,uuid"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"min=5"`
}

func (s *Server) UpdatePlace(ctx echo.Context) error {
	userID, ok := userIDFrom(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, Res{Error: "unauthorized", Message: "Authentication failed!"})
	}

	var req UpdatePlaceRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	place, err := s.server.UpdatePlace(ctx.Request().Context(), usecase.UpdatePlaceCommand{
		PlaceID:     uuid.MustParse(req.ID),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.JSON(200, Res{Data: toPlace(place)})
}

type DeletePlaceRequest struct {
	ID string `param:"pid" validate:"required,uuid"`
}

func (s *Server) DeletePlace(ctx echo.Context) error {
	userID, ok := userIDFrom(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, Res{Error: "unauthorized", Message: "Authentication failed!"})
	}

	var req DeletePlaceRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(ctx, err)
	}

	place, err := s.server.DeletePlace(ctx.Request().Context(), uuid.MustParse(req.ID), userID)
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.JSON(200, Res{Data: toPlace(place), Message: "Deleted place."})
}
