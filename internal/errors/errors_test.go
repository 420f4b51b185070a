package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct{ code string }

func (e *codedError) Error() string { return e.code }

func TestAsType(t *testing.T) {
	err := Wrap(&codedError{code: "TOKEN_EXPIRED"}, "verify")

	got, ok := AsType[*codedError](err)
	require.True(t, ok)
	assert.Equal(t, "TOKEN_EXPIRED", got.code)

	_, ok = AsType[*codedError](New("plain"))
	assert.False(t, ok)
}

func TestIgnoreServerClosed(t *testing.T) {
	assert.NoError(t, IgnoreServerClosed(nil))
	assert.NoError(t, IgnoreServerClosed(http.ErrServerClosed))
	assert.NoError(t, IgnoreServerClosed(fmt.Errorf("serve: %w", http.ErrServerClosed)))

	bind := New("address already in use")
	err := IgnoreServerClosed(bind)
	require.Error(t, err)
	assert.True(t, Is(err, bind))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, WithStack(nil))
}
