package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/logging"
)

// RequestLogger logs one line per request through logrus and puts a request
// scoped entry, tagged with the request id, into the request context.  It
// expects echo's RequestID middleware to run first.
func RequestLogger(log *logrus.Entry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			entry := log.WithField("request_id", reqID)
			c.SetRequest(req.WithContext(logging.ToContext(req.Context(), entry)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":  req.Method,
				"path":    c.Path(),
				"uri":     req.RequestURI,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
				"ip":      c.RealIP(),
			}
			if id, ok := UserID(c); ok {
				fields["user_id"] = id
			}
			line := entry.WithFields(fields)
			switch status := c.Response().Status; {
			case status >= 500:
				line.Error("request failed")
			case status >= 400:
				line.Warn("request rejected")
			default:
				line.Info("request handled")
			}
			return nil
		}
	}
}
