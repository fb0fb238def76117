package returns

import (
	"errors"
	"fmt"
)

// Sentinel errors for the request store.
var (
	// ErrRequestNotFound indicates the request ID does not exist.
	ErrRequestNotFound = errors.New("return/replace request not found")

	// ErrStatusConflict indicates a conditional status update found the
	// request in a different state than expected.
	ErrStatusConflict = errors.New("request status conflict")
)

// ValidationError rejects a malformed input before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed on " + e.Field + ": " + e.Message
}

// StateConflictError rejects an operation against a request in a terminal
// or otherwise incompatible state. The existing record is untouched.
type StateConflictError struct {
	RequestID string
	Current   Status
	Attempted string
}

// Error implements the error interface.
func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s request %s: status is %s", e.Attempted, e.RequestID, e.Current)
}

// Is matches any StateConflictError regardless of detail.
func (e *StateConflictError) Is(target error) bool {
	_, ok := target.(*StateConflictError)
	return ok
}

// FulfillmentError reports that the business decision was persisted but
// the carrier leg failed: the request is approved and unfulfilled, and the
// operator should retry shipment creation rather than re-approve.
type FulfillmentError struct {
	RequestID string
	Stage     string // "resolve_packaging", "create_shipment", ...
	Cause     error
}

// Error implements the error interface.
func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("request %s is approved but unfulfilled (%s failed): %v; retry shipment creation, do not re-approve",
		e.RequestID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FulfillmentError) Unwrap() error {
	return e.Cause
}
