package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(otelecho.Middleware("placeshare-api"))
	e.Use(middleware.RequestID())
	e.Use(NewEchoLogger(s.logger))
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		MaxAge:       300,
	}))

	if s.uploadDir != "" {
		e.Static("/uploads", s.uploadDir)
	}

	e.GET("/api/health", s.healthHandler)

	var placeGroup = e.Group("/api/places")
	placeGroup.GET("/:pid", s.GetPlaceByID)
	placeGroup.GET("/user/:uid", s.ListPlacesByUser)
	placeGroup.POST("", s.CreatePlace, s.AuthMiddleware)
	placeGroup.PATCH("/:pid", s.UpdatePlace, s.AuthMiddleware)
	placeGroup.DELETE("/:pid", s.DeletePlace, s.AuthMiddleware)

	var userGroup = e.Group("/api/users")
	userGroup.GET("", s.ListUsers)
	userGroup.POST("/signup", s.Signup)
	userGroup.POST("/login", s.Login)

	var jobGroup = e.Group("/api/jobs", s.AuthMiddleware)
	jobGroup.GET("", s.ListJobs)
	jobGroup.POST("/reconcile", s.ScheduleReconcile)

	return e
}

// httpErrorHandler keeps router errors (unknown route, body too large) in
// the Res shape.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := http.StatusInternalServerError, "An unknown error occurred!"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code == http.StatusNotFound {
		msg = "Could not find this route."
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, Res{Error: http.StatusText(code), Message: msg})
	}
	if err != nil {
		s.logger.ErrorContext(c.Request().Context(), "error response not written", "err", err)
	}
}

func (s *Server) healthHandler(c echo.Context) error {
	stats := s.server.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	if s.redis != nil {
		if err := s.redis.Ping(c.Request().Context()).Err(); err != nil {
			stats["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			stats["redis"] = "up"
		}
	}

	return c.JSON(status, stats)
}
