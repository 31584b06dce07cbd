package google

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// Common Google API errors.
var (
	// ErrBadRequest indicates a malformed request (e.g., unsupported export type).
	ErrBadRequest = errors.New("google: bad request")

	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")
)

// StatusCode returns the HTTP status of a Google API error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode
	}
	return 0
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || StatusCode(err) == http.StatusTooManyRequests
}

// WrapError converts a Google API error into a classified error.
// 400, 401, 403 and 404 are permanent, and so is a refresh token the token
// endpoint rejected. Everything else is transient.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response == nil || domain.IsPermanentStatus(rerr.Response.StatusCode) {
			return domain.NewPermanent(fmt.Errorf("%s: %w: %w", op, domain.ErrAuthInvalid, err))
		}
		return domain.NewTransient(fmt.Errorf("%s: refresh token: %w", op, err))
	}

	var sentinel error
	switch StatusCode(err) {
	case http.StatusBadRequest:
		sentinel = ErrBadRequest
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusTooManyRequests:
		return domain.NewTransient(fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err))
	default:
		return domain.NewTransient(fmt.Errorf("%s: %w", op, err))
	}
	return domain.NewPermanent(fmt.Errorf("%s: %w: %w", op, sentinel, err))
}
