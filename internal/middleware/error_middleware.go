package middleware

import (
	"errors"
	"net/http"

	"upload-gateway/internal/transport/httpdto"
	upload_errors "upload-gateway/pkg/errors"
	"upload-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler answers for handlers that recorded an error on the
// context without writing a response themselves.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Sugar().Errorf("request error: %s", err)
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), errorCode(err)))
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, upload_errors.ErrResourceBusy):
		return "RESOURCE_BUSY"
	case errors.Is(err, upload_errors.ErrConflict), errors.Is(err, upload_errors.ErrJobIDTaken):
		return "CONFLICT"
	case errors.Is(err, upload_errors.ErrNotFound), errors.Is(err, upload_errors.ErrProjectNotFound):
		return "NOT_FOUND"
	case errors.Is(err, upload_errors.ErrInvalidInput), errors.Is(err, upload_errors.ErrInvalidTransition):
		return "INVALID_REQUEST"
	case errors.Is(err, upload_errors.ErrUpstreamFailure):
		return "UPSTREAM_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}
