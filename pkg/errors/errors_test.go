package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := New("TEST", "something failed", http.StatusTeapot)
	require.Equal(t, "something failed", err.Error())

	withInternal := err.WithInternal(errors.New("boom"))
	require.Equal(t, "something failed: boom", withInternal.Error())
	require.Equal(t, "something failed", err.Error())
}

func TestFromErrorPreservesAppError(t *testing.T) {
	require.Nil(t, FromError(nil))

	converted := FromError(ErrTeamFull)
	require.Equal(t, ErrTeamFull.Code, converted.Code)
	require.Equal(t, http.StatusConflict, converted.StatusCode)

	wrapped := fmt.Errorf("service: join: %w", ErrAlreadyInTeam)
	converted = FromError(wrapped)
	require.Equal(t, "ALREADY_IN_TEAM", converted.Code)

	plain := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, plain.Code)
	require.EqualError(t, plain.Unwrap(), "boom")
}

func TestErrorsIsDiscriminatesSentinels(t *testing.T) {
	wrapped := fmt.Errorf("membership: %w", ErrTeamFull)
	require.ErrorIs(t, wrapped, ErrTeamFull)
	require.NotErrorIs(t, wrapped, ErrAlreadyInTeam)
}

func TestWrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(cause, "could not persist team")
	require.Equal(t, "INTERNAL_ERROR", err.Code)
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.ErrorIs(t, err, cause)
}
