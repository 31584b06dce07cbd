package google

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

func TestWrapError_StatusCodes(t *testing.T) {
	tests := []struct {
		code     int
		kind     domain.ErrorKind
		sentinel error
	}{
		{http.StatusBadRequest, domain.Permanent, ErrBadRequest},
		{http.StatusUnauthorized, domain.Permanent, ErrUnauthorized},
		{http.StatusForbidden, domain.Permanent, ErrForbidden},
		{http.StatusNotFound, domain.Permanent, ErrNotFound},
		{http.StatusTooManyRequests, domain.Transient, ErrRateLimited},
		{http.StatusInternalServerError, domain.Transient, nil},
		{http.StatusServiceUnavailable, domain.Transient, nil},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := WrapError("download", &googleapi.Error{Code: tt.code, Message: "x"})
			assert.Equal(t, tt.kind, domain.Classify(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Contains(t, err.Error(), "download")
			assert.Equal(t, tt.code, StatusCode(err))
		})
	}
}

func TestWrapError_Nil(t *testing.T) {
	assert.NoError(t, WrapError("op", nil))
}

func TestWrapError_PlainErrorIsTransient(t *testing.T) {
	err := WrapError("list", errors.New("connection reset by peer"))
	assert.Equal(t, domain.Transient, domain.Classify(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestWrapError_RejectedRefreshToken(t *testing.T) {
	rerr := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}, ErrorCode: "invalid_grant"}

	err := WrapError("list", rerr)

	assert.Equal(t, domain.Permanent, domain.Classify(err))
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestWrapError_TokenEndpointOutage(t *testing.T) {
	rerr := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadGateway}}

	err := WrapError("list", rerr)

	assert.Equal(t, domain.Transient, domain.Classify(err))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, IsRateLimited(ErrRateLimited))
	assert.False(t, IsRateLimited(&googleapi.Error{Code: http.StatusForbidden}))
}
