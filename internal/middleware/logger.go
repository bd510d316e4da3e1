package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dogfinder/pkg/logger"
)

// Logger returns a middleware that logs HTTP requests.
// Bodies are never logged: adoption forms carry applicant contact details.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"user_agent", c.Request.UserAgent(),
		}

		switch {
		case status >= 500:
			log.Error(err, "Server error", fields...)
		case status >= 400:
			log.Warn(err, "Client error", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}
