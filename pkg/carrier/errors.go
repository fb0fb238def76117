package carrier

import (
	"errors"
	"fmt"
)

// Error represents a normalized error from a logistics provider.
// Validation rejections (4xx) are never retryable and keep the carrier's
// message verbatim so operators see exactly what the carrier objected to.
type Error struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is: two carrier errors match on code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new carrier Error.
func NewError(carrier, code, message string) *Error {
	return &Error{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common carrier scenarios.
var (
	// ErrInvalidAddress indicates the address or pincode is invalid.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrMissingField indicates the carrier rejected a payload missing a
	// required field.
	ErrMissingField = errors.New("missing required field")

	// ErrServiceUnavailable indicates the carrier is temporarily unreachable.
	ErrServiceUnavailable = errors.New("carrier service unavailable")

	// ErrShipmentNotFound indicates the waybill was not found.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrPickupUnavailable indicates no pickup slot could be booked.
	ErrPickupUnavailable = errors.New("pickup unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("carrier authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("carrier rate limit exceeded")

	// ErrGatewayNotFound indicates the requested gateway is not registered.
	ErrGatewayNotFound = errors.New("carrier gateway not found")
)

// IsRetryable reports whether the error represents a transient condition
// (timeout, 5xx, outage) that a single re-attempt may clear.
func IsRetryable(err error) bool {
	var carrierErr *Error
	if errors.As(err, &carrierErr) {
		return carrierErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
