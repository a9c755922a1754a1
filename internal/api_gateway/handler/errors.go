package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/doorstep-banking/internal/api_gateway/middleware"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// ErrorMapper translates lifecycle errors into HTTP error responses
type ErrorMapper struct {
	logger       *slog.Logger
	exposeDetail bool
}

// NewErrorMapper creates an error mapper. exposeDetail adds the underlying
// error text to 5xx responses and must be off in production.
func NewErrorMapper(logger *slog.Logger, exposeDetail bool) *ErrorMapper {
	return &ErrorMapper{logger: logger, exposeDetail: exposeDetail}
}

// Respond writes the response matching err's kind
func (m *ErrorMapper) Respond(c *gin.Context, err error) {
	status, info := m.classify(err)

	log := m.logger.With(
		"path", c.FullPath(),
		"correlation_id", middleware.GetCorrelationID(c),
		"error", err,
	)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "status", status)
	} else {
		log.Warn("Request rejected", "status", status)
	}

	RespondWithError(c, status, info)
}

func (m *ErrorMapper) classify(err error) (int, ErrorInfo) {
	var (
		validationErr shared.ValidationError
		statusErr     shared.InvalidStatusError
		authErr       shared.AuthorizationError
		notFoundErr   shared.NotFoundError
		conflictErr   shared.ConflictError
		dependencyErr shared.DependencyError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorInfo{Code: "VALIDATION_ERROR", Message: validationErr.Error(), Fields: validationErr.Fields}
	case errors.As(err, &statusErr):
		return http.StatusBadRequest, ErrorInfo{Code: "INVALID_STATUS", Message: statusErr.Error()}
	case errors.As(err, &authErr):
		return http.StatusForbidden, ErrorInfo{Code: "FORBIDDEN", Message: authErr.Error()}
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ErrorInfo{Code: "NOT_FOUND", Message: notFoundErr.Error()}
	case errors.As(err, &conflictErr):
		return http.StatusConflict, ErrorInfo{Code: "CONFLICT", Message: conflictErr.Error()}
	}

	info := ErrorInfo{Code: "INTERNAL_SERVER_ERROR", Message: "An internal server error occurred"}
	if errors.As(err, &dependencyErr) {
		info = ErrorInfo{Code: "DEPENDENCY_UNAVAILABLE", Message: "A backing store is unavailable, retry later"}
	}
	if m.exposeDetail {
		info.Detail = err.Error()
	}
	return http.StatusInternalServerError, info
}
