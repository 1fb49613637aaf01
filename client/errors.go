package client

import (
	errs "github.com/Trewaters/soar-sub011/client/internal/errors"
)

// APIError is returned for non-200 responses and transport failures.
type APIError = errs.ClassifiedError

// IsIrrecoverable reports whether err will fail again on retry.
func IsIrrecoverable(err error) bool { return errs.IsIrrecoverable(err) }

// IsInvalidRequest reports whether the server rejected the request's parameters.
func IsInvalidRequest(err error) bool { return errs.StatusCode(err) == 400 }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int { return errs.StatusCode(err) }
