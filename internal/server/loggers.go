package server

import (
	"log/slog"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func skipper(c echo.Context) bool {
	return slices.Contains([]string{
		"/api/health",
		"/favicon.ico",
	}, c.Request().URL.Path)
}

func NewEchoLogger(l *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:        true,
		LogURI:           true,
		LogError:         true,
		HandleError:      true, // forwards error to the global error handler, so it can decide appropriate status code
		LogRequestID:     true,
		LogRemoteIP:      true,
		LogMethod:        true,
		LogRoutePath:     true,
		LogUserAgent:     true,
		LogLatency:       true,
		LogContentLength: true,
		LogResponseSize:  true,
		Skipper:          skipper,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			msg := "REQUEST"
			switch {
			case v.Error != nil || v.Status >= 500:
				level = slog.LevelError
				msg = "REQUEST_ERROR"
			case v.Status >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.String("route", v.RoutePath),
				slog.String("user_agent", v.UserAgent),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("bytes_in", v.ContentLength),
				slog.Int64("bytes_out", v.ResponseSize),
			}
			if uid, ok := c.Get(ctxKeyUserID).(string); ok {
				attrs = append(attrs, slog.String("user_id", uid))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}

			l.LogAttrs(c.Request().Context(), level, msg, attrs...)
			return nil
		},
	})
}
