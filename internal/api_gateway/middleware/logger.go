package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one access log line per request. Server errors log at ERROR,
// client errors at WARN and health probes at DEBUG.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", requestPath(c.Request.URL),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if id := GetCorrelationID(c); id != "" {
			attrs = append(attrs, "correlation_id", id)
		}
		if actor, ok := GetActor(c); ok {
			attrs = append(attrs, "actor_id", actor.ID, "actor_role", string(actor.Role))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		logger.Log(c.Request.Context(), accessLevel(c), "HTTP request", attrs...)
	}
}

func accessLevel(c *gin.Context) slog.Level {
	status := c.Writer.Status()
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case c.FullPath() == "/health":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// requestPath renders the path and query with the customer phone masked
func requestPath(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	query := u.Query()
	if phone := query.Get("phone"); phone != "" {
		query.Set("phone", maskPhone(phone))
	}
	return u.Path + "?" + query.Encode()
}

// maskPhone keeps the last four characters
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
