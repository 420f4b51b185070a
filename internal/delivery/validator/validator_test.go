package validator

import (
	"testing"

	domainerrors "dbaportal/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestCustomValidator(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&signupBody{Email: "a@clinic.kr", Password: "longenough"}))

	err := v.Validate(&signupBody{Email: "nope", Password: "short"})
	require.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details(), "Email:email")
	assert.Contains(t, appErr.Details(), "Password:min")
}
