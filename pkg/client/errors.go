package client

import (
	"errors"
	"fmt"
)

// parseCodeObjectNotFound is the Parse error code for a missing object.
const parseCodeObjectNotFound = 101

// TransportError reports a request that never produced a usable response:
// connection failures, timeouts, cancelled contexts, or (for the weather
// API) an unsuccessful status.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError reports a non-success status from the object store that is
// neither a validation failure nor a missing object.
type ServerError struct {
	Status  int
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// ValidationError is a write the object store rejected as invalid.
type ValidationError struct {
	Status  int
	Code    int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports that the addressed object does not exist.
type NotFoundError struct {
	Class   string
	ID      string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %q not found: %s", e.Class, e.ID, e.Message)
	}
	return fmt.Sprintf("%s %q not found", e.Class, e.ID)
}

// DataUnavailableError reports a successful response that lacked the
// expected data, such as a forecast without current conditions.
type DataUnavailableError struct {
	Message string
}

func (e *DataUnavailableError) Error() string {
	return e.Message
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a server-side ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsDataUnavailable reports whether err wraps a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}

// IsTransport reports whether err wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsServer reports whether err wraps a ServerError.
func IsServer(err error) bool {
	var target *ServerError
	return errors.As(err, &target)
}
