package client

import "fmt"

// ErrorCode represents the type of error that occurred in the client
// registry.
type ErrorCode int

const (
	// ErrOutOfMemory indicates a table growth or Client allocation failure.
	// The table remains structurally unchanged.
	ErrOutOfMemory ErrorCode = iota + 1

	// ErrInvalidArgument indicates a nil or otherwise malformed input to a
	// ref-counted API.
	ErrInvalidArgument

	// ErrNotFound indicates a scratch-slot lookup (ctx_get/ctx_del) found
	// no slot matching the requested translator identity.
	ErrNotFound

	// ErrNotConnected indicates an operation issued on a client whose
	// bindings have all already been put back.
	ErrNotConnected
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrOutOfMemory:
		return "OutOfMemory"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotFound:
		return "NotFound"
	case ErrNotConnected:
		return "NotConnected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// Error is a client-registry error carrying an ErrorCode.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewOutOfMemoryError creates an OutOfMemory error.
func NewOutOfMemoryError(message string) *Error {
	return &Error{Code: ErrOutOfMemory, Message: message}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(message string) *Error {
	return &Error{Code: ErrInvalidArgument, Message: message}
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrNotFound, Message: message}
}

// NewNotConnectedError creates a NotConnected error.
func NewNotConnectedError(message string) *Error {
	return &Error{Code: ErrNotConnected, Message: message}
}

// IsOutOfMemoryError returns true if err is an OutOfMemory error.
func IsOutOfMemoryError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrOutOfMemory
}

// IsInvalidArgumentError returns true if err is an InvalidArgument error.
func IsInvalidArgumentError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrInvalidArgument
}

// IsNotFoundError returns true if err is a NotFound error.
func IsNotFoundError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrNotFound
}

// IsNotConnectedError returns true if err is a NotConnected error.
func IsNotConnectedError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrNotConnected
}
