package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mailtriage/internal/metrics"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request latency by route template
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.RecordHTTPRequestDuration(c.Request().Method, path, strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}
