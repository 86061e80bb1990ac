package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// StatusForKind maps an error kind to the response status.
func StatusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindInfrastructure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondWithAppError writes err using its kind. Server-side failures are
// logged and their cause is not echoed to the client.
func RespondWithAppError(c *gin.Context, err error) {
	status := StatusForKind(apperrors.KindOf(err))

	message := "An internal server error occurred."
	var ae *apperrors.Error
	if errors.As(err, &ae) && status < http.StatusInternalServerError {
		message = ae.Message
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"error", err)
		if status == http.StatusServiceUnavailable {
			message = "The data store is temporarily unavailable."
		}
	}

	c.JSON(status, ErrorResponse{
		Error:     HTTPStatusText(status),
		Message:   message,
		Retryable: apperrors.IsRetryable(err),
	})
}
