package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

// Logging writes one access line per request. Rejected uploads log at warn,
// server errors at error.
func Logging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []interface{}{
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", c.RealIP(),
				"bytes_in", req.ContentLength,
			}
			if pid := req.Header.Get("X-Partner-ID"); pid != "" {
				fields = append(fields, "partner_id", pid)
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error(req.Context(), "HTTP request", fields...)
			case status >= http.StatusBadRequest:
				log.Warn(req.Context(), "HTTP request", fields...)
			default:
				log.Info(req.Context(), "HTTP request", fields...)
			}

			return nil
		}
	}
}
