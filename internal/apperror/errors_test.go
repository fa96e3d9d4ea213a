package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"rate": "must be >= 0",
		"name": "is required",
	}}

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "validation failed: name: is required; rate: must be >= 0", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(fmt.Errorf("ctx: %w", NewValidation("status", "bad")), &ve))
	assert.Equal(t, "bad", ve.Fields["status"])
}
