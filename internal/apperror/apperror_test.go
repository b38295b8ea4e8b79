package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatusAndCode(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{TokenMissing, http.StatusUnauthorized, "TOKEN_MISSING"},
		{TokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},
		{TokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{AuthRequired, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{InsufficientPermissions, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{Configuration, http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		{Validation, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{PayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{RateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.kind.Status())
			assert.Equal(t, tc.code, tc.kind.Code())
		})
	}
}

func TestNew_DefaultMessage(t *testing.T) {
	err := New(TokenExpired, "")
	assert.Equal(t, "Token expired", err.Message)

	err = New(TokenExpired, "Session has ended")
	assert.Equal(t, "Session has ended", err.Message)
}

func TestIs_MatchesByKind(t *testing.T) {
	err := New(TokenInvalid, "Invalid token type. Expected: ACCESS")

	assert.True(t, errors.Is(err, ErrTokenInvalid))
	assert.False(t, errors.Is(err, ErrTokenExpired))

	wrapped := fmt.Errorf("verify: %w", err)
	assert.True(t, errors.Is(wrapped, ErrTokenInvalid))
}

func TestWrap_KeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("signature is invalid")
	err := Wrap(TokenInvalid, "Invalid token signature", cause)

	assert.Equal(t, "Invalid token signature", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "signature is invalid")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, InsufficientPermissions, KindOf(ErrInsufficientPermissions))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.Equal(t, Conflict, KindOf(fmt.Errorf("register: %w", New(Conflict, "exists"))))
}
