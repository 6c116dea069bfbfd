package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/placeshare/placeshare/internal/usecase"
)

const invalidInputs = "Invalid inputs passed, please check your data."

func statusOf(kind usecase.Kind) int {
	switch kind {
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindUnauthorized:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case usecase.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case usecase.KindGeocoding, usecase.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the caller-facing part of err. Causes are never serialised.
func fail(ctx echo.Context, err error) error {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return ctx.JSON(http.StatusInternalServerError, Res{
			Error:   usecase.KindUnavailable.String(),
			Message: "An unknown error occurred!",
		})
	}
	return ctx.JSON(statusOf(ue.Kind), Res{
		Error:   ue.Code,
		Message: ue.Message,
	})
}

func invalid(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusUnprocessableEntity, Res{
		Error:   err.Error(),
		Message: invalidInputs,
	})
}
