package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint64

const (
	ErrCInternal       ErrCode = iota // 0: Unexpected failure of the database or the serializer.
	ErrCNotFound                      // 1: Key neither cached nor persisted.
	ErrCOutOfRange                    // 2: Sequence index outside [0, length).
	ErrCConfiguration                 // 3: Invalid construction parameters.
	ErrCSchemaConflict                // 4: The table (or one of its indexes) already exists.
	ErrCReferenceCount                // 5: A connection was released more often than acquired.
	ErrCClosed                        // 6: The collection was used after Close.
)

func (c ErrCode) String() string {
	switch c {
	case ErrCInternal:
		return "Internal"
	case ErrCNotFound:
		return "NotFound"
	case ErrCOutOfRange:
		return "OutOfRange"
	case ErrCConfiguration:
		return "Configuration"
	case ErrCSchemaConflict:
		return "SchemaConflict"
	case ErrCReferenceCount:
		return "ReferenceCount"
	case ErrCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps an error code, a message and
// optionally the error that caused it.
type Error struct {
	Code ErrCode // The error code
	Msg  string  // The error message
	Err  error   // The underlying error, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("StoreError (code %s)", e.Code)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a store error with the same code, which makes
// errors.Is(err, store.ErrNotFound) work for every error created by NewError.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new store error with the given code and message.
func NewError(code ErrCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new store error with the given code and message that wraps err.
func WrapError(code ErrCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinel errors for errors.Is checks.
var (
	ErrInternal       = &Error{Code: ErrCInternal}
	ErrNotFound       = &Error{Code: ErrCNotFound}
	ErrOutOfRange     = &Error{Code: ErrCOutOfRange}
	ErrConfiguration  = &Error{Code: ErrCConfiguration}
	ErrSchemaConflict = &Error{Code: ErrCSchemaConflict}
	ErrReferenceCount = &Error{Code: ErrCReferenceCount}
	ErrClosed         = &Error{Code: ErrCClosed}
)
