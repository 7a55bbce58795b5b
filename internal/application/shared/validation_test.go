package shared

import (
	"testing"

	domain "github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer artisan"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := Struct(sampleInput{Email: "a@example.com", Password: "secret1", Quantity: 1})
		assert.NoError(t, err)
	})

	t.Run("invalid fields are reported by json name", func(t *testing.T) {
		err := Struct(sampleInput{Email: "nope", Password: "abc", Role: "wizard"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "email: Invalid email format")
		assert.Contains(t, err.Error(), "password: Must be at least 6 characters")
		assert.Contains(t, err.Error(), "role: Must be one of: buyer artisan")
		assert.Contains(t, err.Error(), "quantity: Must be greater than 0")
	})
}

func TestFieldErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))

	err := Validator().Struct(sampleInput{Password: "secret1", Quantity: 2})
	details := FieldErrors(err)
	require.Len(t, details, 1)
	assert.Equal(t, FieldError{Field: "email", Message: "This field is required"}, details[0])
}
