package carrier_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/knitkart/fulfillment/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := carrier.NewError("shiprocket", "VALIDATION_REJECTED", "pincode 00000 not serviceable").
		WithStatusCode(422)

	assert.Contains(t, err.Error(), "shiprocket")
	assert.Contains(t, err.Error(), "VALIDATION_REJECTED")
	assert.Contains(t, err.Error(), "pincode 00000 not serviceable")
	assert.Equal(t, 422, err.StatusCode)
	assert.False(t, err.Retryable)
}

func TestError_IsMatchesOnCode(t *testing.T) {
	err := carrier.NewError("shiprocket", "TIMEOUT", "request timed out").WithRetryable(true)
	wrapped := fmt.Errorf("booking leg: %w", err)

	assert.ErrorIs(t, wrapped, carrier.NewError("", "TIMEOUT", ""))
	assert.NotErrorIs(t, wrapped, carrier.NewError("", "NETWORK_ERROR", ""))
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := carrier.NewError("shiprocket", "NETWORK_ERROR", "request failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, carrier.IsRetryable(
		carrier.NewError("x", "CARRIER_UNAVAILABLE", "503").WithRetryable(true)))
	assert.False(t, carrier.IsRetryable(
		carrier.NewError("x", "VALIDATION_REJECTED", "bad pincode")))

	// Wrapped carrier errors keep their retryability.
	wrapped := fmt.Errorf("outer: %w",
		carrier.NewError("x", "TIMEOUT", "deadline").WithRetryable(true))
	assert.True(t, carrier.IsRetryable(wrapped))

	assert.True(t, carrier.IsRetryable(carrier.ErrServiceUnavailable))
	assert.True(t, carrier.IsRetryable(carrier.ErrRateLimitExceeded))
	assert.False(t, carrier.IsRetryable(carrier.ErrInvalidAddress))
	assert.False(t, carrier.IsRetryable(errors.New("some other error")))
}
