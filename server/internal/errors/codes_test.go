package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{InvalidArgument("bad"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{RateLimitExceeded("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("down"), http.StatusServiceUnavailable},
		{&APIError{Code: ErrCodeTimeout}, http.StatusGatewayTimeout},
		{Internal("oops", errors.New("db")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] event missing", NotFound("event missing").Error())

	cause := errors.New("disk full")
	err := Internal("failed to save", cause)
	assert.Equal(t, "[INTERNAL] failed to save: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("x"))
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeInternal))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))

	assert.Equal(t, ErrCodeNotFound, GetCodeFromError(err, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(errors.New("plain"), ErrCodeInternal))
}

func TestWithContext(t *testing.T) {
	err := InvalidArgument("bad zone").WithContext("timezone", "Mars/Base")
	assert.Equal(t, "Mars/Base", err.Context["timezone"])
	assert.Equal(t, ErrCodeInvalidArgument, Wrap(err, ErrCodeInvalidArgument, "outer").Code)
}
