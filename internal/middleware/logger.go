package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/logging"
)

// RequestLogger writes one structured line per request. Bodies are never
// logged, so credentials cannot leak through it.
func RequestLogger(log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo's error handler set the final status first
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			args := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Path(),
				"status", res.Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"subject", subjectOf(c),
				"remote_ip", c.RealIP(),
			}
			switch {
			case res.Status >= 500:
				log.Error(req.Context(), "request", append(args, "err", errString(err))...)
			case res.Status >= 400:
				log.Warn(req.Context(), "request", args...)
			default:
				log.Info(req.Context(), "request", args...)
			}
			return nil
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
