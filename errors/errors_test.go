package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesType(t *testing.T) {
	err := NewNotFound("plugin", "x6")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))

	wrapped := fmt.Errorf("loading: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))
}

func TestNewHookFailure_KeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewHookFailure("svg", "install", cause)

	assert.True(t, errors.Is(err, ErrHookFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "svg", err.Details["plugin"])
}

func TestNewBatch_CountsFailures(t *testing.T) {
	err := NewBatch("install", []error{
		NewDependencyMissing("b", "a"),
		NewHookFailure("c", "install", errors.New("x")),
	})

	require.True(t, errors.Is(err, ErrBatch))
	assert.Contains(t, err.Error(), "failed to install 2 plugins")
	assert.True(t, errors.Is(err, ErrDependencyMissing))
	assert.True(t, errors.Is(err, ErrHookFailure))
	assert.Equal(t, 2, err.Details["failed"])
}

func TestRecover(t *testing.T) {
	err := Recover(func() error { panic("kaboom") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternal))

	err = Recover(func() error { return nil })
	assert.NoError(t, err)

	cause := errors.New("plain")
	err = Recover(func() error { return cause })
	assert.Same(t, cause, err)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFound("renderer", "foo")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewInvalid("format", "bmp", "unsupported")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	app := NewConflict("plugin", "svg")
	assert.Same(t, app, FromError(fmt.Errorf("ctx: %w", app)))

	plain := FromError(errors.New("plain"))
	assert.Equal(t, ErrorTypeUnknown, plain.Type)
	assert.Equal(t, "plain", plain.Error())
}
