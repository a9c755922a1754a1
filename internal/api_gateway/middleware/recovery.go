package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery middleware catches panics, logs them with stack traces, and returns a 500 error
// with correlation ID (if available) to maintain request traceability.
// The panic value and stack are echoed to the client only when exposeStack is set.
func Recovery(logger *slog.Logger, exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				logger.Error("Panic recovered",
					"error", r,
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"correlation_id", GetCorrelationID(c),
				)

				var extra gin.H
				if exposeStack {
					extra = gin.H{
						"detail": fmt.Sprint(r),
						"stack":  stack,
					}
				}
				abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred", extra)
			}
		}()

		c.Next()
	}
}
