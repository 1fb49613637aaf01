package library

import (
	"errors"
	"fmt"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// InvalidRequestError reports a malformed pagination parameter or type.
// No store call is made when it is returned.
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewInvalidRequest creates an InvalidRequestError.
func NewInvalidRequest(field, message string) InvalidRequestError {
	return InvalidRequestError{Field: field, Message: message}
}

// IsInvalidRequest checks if an error is an InvalidRequestError (including wrapped errors)
func IsInvalidRequest(err error) bool {
	var ie InvalidRequestError
	return errors.As(err, &ie)
}

// StoreUnavailableError wraps a failed collection query.
type StoreUnavailableError struct {
	Kind model.Kind
	Err  error
}

func (e StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable for %s: %v", e.Kind, e.Err)
}

func (e StoreUnavailableError) Unwrap() error { return e.Err }

// IsStoreUnavailable checks if an error is a StoreUnavailableError (including wrapped errors)
func IsStoreUnavailable(err error) bool {
	var se StoreUnavailableError
	return errors.As(err, &se)
}

// PartialMergeFailureError is returned for type "all" when one sub-query
// fails. The whole call fails; no partial page is returned.
type PartialMergeFailureError struct {
	Failed model.Kind
	Err    error
}

func (e PartialMergeFailureError) Error() string {
	return fmt.Sprintf("merge aborted, %s query failed: %v", e.Failed, e.Err)
}

func (e PartialMergeFailureError) Unwrap() error { return e.Err }

// IsPartialMergeFailure checks if an error is a PartialMergeFailureError (including wrapped errors)
func IsPartialMergeFailure(err error) bool {
	var pe PartialMergeFailureError
	return errors.As(err, &pe)
}
