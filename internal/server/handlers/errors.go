package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
}

// respondError maps domain errors onto HTTP statuses. Store failures are
// reported as retryable; the client decides when to retry.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		status = http.StatusInternalServerError
		body   = errorResponse{Error: err.Error()}
		verr   *models.ValidationError
	)

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body.Error = "validation failed"
		body.Fields = map[string]string{verr.Field: verr.Message}
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		body.Error = "store unavailable, please retry"
		body.Retryable = true
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err), zap.Int("status", status), zap.String("path", c.FullPath()))
	} else {
		logger.Debug("request rejected", zap.Error(err), zap.Int("status", status))
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, field string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:  "validation failed",
		Fields: map[string]string{field: err.Error()},
	})
}
