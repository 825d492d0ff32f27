package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"not found", NotFound("game", "pong"), ErrNotFound},
		{"validation", ValidationFailed("title", "required"), ErrValidation},
		{"conflict", Conflict("game", "pong"), ErrConflict},
		{"forbidden", Forbidden("not yours"), ErrForbidden},
		{"wrapped", fmt.Errorf("service: %w", NotFound("post", "x")), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	v := ValidationErrors{}
	assert.NoError(t, v.Err())

	v.Add("url", "Game URL must start with http:// or https://")
	v.Add("archive", "Uploaded file must be a ZIP archive.")
	v.Add("archive", "Max file size is 5 MB")

	err := v.Err()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, v.Has("archive"))
	assert.False(t, v.Has("title"))
	assert.Equal(t,
		"archive: Uploaded file must be a ZIP archive.; Max file size is 5 MB, url: Game URL must start with http:// or https://",
		err.Error())

	var ve ValidationErrors
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &ve))
	assert.Len(t, ve["archive"], 2)
}
