package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/studytrack/internal/ai"
	"github.com/nhle/studytrack/internal/model"
)

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAuthRequired), errors.Is(err, ai.ErrNoAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, ai.ErrQuotaExhausted):
		return http.StatusPaymentRequired
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrUpstream), errors.Is(err, model.ErrPartialAggregation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with a JSON error body. Internal errors are
// logged and reported without detail.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bind decodes the JSON body into v, reporting malformed bodies as
// validation errors.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.writeError(c, &model.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}
