package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrNotFound, http.StatusTeapot, "x"), http.StatusTeapot},
		{"wrapped not found", fmt.Errorf("loading: %w", ErrNotFound), http.StatusNotFound},
		{"interval", ErrInvalidInterval, http.StatusBadRequest},
		{"negative weight", fmt.Errorf("set: %w", ErrNegativeWeight), http.StatusBadRequest},
		{"not ready", ErrModelNotReady, http.StatusServiceUnavailable},
		{"conflict", ErrIdempotencyConflict, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Invalid(ErrInvalidInterval, "lo %.1f > hi %.1f", 0.8, 0.2)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Equal(t, "invalid distance interval: lo 0.8 > hi 0.2", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatusCode(err))
}
