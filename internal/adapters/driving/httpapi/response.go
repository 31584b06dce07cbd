package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// writeError maps domain errors to status codes. Unexpected errors are
// reported without detail.
func writeError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		abortError(c, http.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrForbidden):
		abortError(c, http.StatusForbidden, "Forbidden: not your file.")
	case errors.Is(err, domain.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		abortError(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again in a minute.")
	case errors.Is(err, domain.ErrAuthRequired), errors.Is(err, domain.ErrAuthInvalid):
		abortError(c, http.StatusUnauthorized, "Google account not connected. Please re-authenticate.")
	default:
		abortError(c, http.StatusInternalServerError, fallback)
	}
}
