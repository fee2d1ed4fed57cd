package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkClassifiesError(t *testing.T) {
	err := NewError("checkout link not found").
		WithHint("Checkout link not found").
		Mark(ErrNotFound)

	assert.True(t, IsNotFound(err))
	assert.False(t, IsAlreadyExists(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromErr(err))
}

func TestWithErrorPreservesSentinel(t *testing.T) {
	inner := NewError("row moved underneath us").Mark(ErrVersionConflict)

	wrapped := WithError(inner).
		WithMessage("failed to expire checkout link").
		Mark(ErrDatabase)

	assert.True(t, IsVersionConflict(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromErr(wrapped))
}

func TestUnmarkedErrorFallsBackTo500(t *testing.T) {
	err := NewError("something unexpected").Error()

	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromErr(err))
	assert.False(t, IsNotFound(err))
}

func TestStatusMappingPerSentinel(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
		status   int
	}{
		{"validation", ErrValidation, http.StatusBadRequest},
		{"permission denied", ErrPermissionDenied, http.StatusForbidden},
		{"insufficient funds", ErrInsufficientFunds, http.StatusPaymentRequired},
		{"integration", ErrIntegration, http.StatusBadGateway},
		{"config missing", ErrConfigMissing, http.StatusServiceUnavailable},
		{"already exists", ErrAlreadyExists, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewError(tc.name).Mark(tc.sentinel)
			assert.Equal(t, tc.status, HTTPStatusFromErr(err))
		})
	}
}
