package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "failed")
	require.Equal(t, "failed: boom", err.Error())
}

func TestWithInternalCopiesAndStillMatchesSentinel(t *testing.T) {
	with := ErrWrongPassword.WithInternal(stdErrors.New("status 400"))

	require.NotSame(t, ErrWrongPassword, with)
	require.Nil(t, ErrWrongPassword.Internal)
	require.ErrorIs(t, with, ErrWrongPassword)
	require.NotErrorIs(t, with, ErrNotAuthenticated)
}

func TestFromError(t *testing.T) {
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	wrapped := fmt.Errorf("commit: %w", ErrCooldown)
	require.Same(t, ErrCooldown, FromError(wrapped))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)

	require.Nil(t, FromError(nil))
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.Equal(t, ErrBadRequest.Code, err.Code)
	require.Equal(t, "invalid payload", err.Message)
}
