package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/placeshare/placeshare/internal/config"
)

const ctxKeyUserID = "user_id"

// AuthMiddleware verifies the bearer token and puts the user id into the
// request context.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var (
			ctx  = c.Request().Context()
			auth = c.Request().Header.Get(config.HEADER_KEY_AUTHORIZATION)
		)

		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.JSON(http.StatusUnauthorized, Res{
				Error:   "unauthorized",
				Message: "Authentication failed!",
			})
		}

		userID, err := s.server.VerifyToken(ctx, strings.TrimSpace(token))
		if err != nil {
			return fail(c, err)
		}

		ctx = context.WithValue(ctx, config.CTX_KEY_USER_ID, userID)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(ctxKeyUserID, userID.String())

		return next(c)
	}
}

func userIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(config.CTX_KEY_USER_ID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
