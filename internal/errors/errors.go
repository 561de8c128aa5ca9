package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Sieve error code.
type ErrorCode string

const (
	ErrIndexOutOfRange          ErrorCode = "INDEX_OUT_OF_RANGE"         // 400
	ErrInvalidRequest           ErrorCode = "INVALID_REQUEST"            // 400
	ErrGroupNotFound            ErrorCode = "GROUP_NOT_FOUND"            // 404
	ErrFileNotFound             ErrorCode = "FILE_NOT_FOUND"             // 404
	ErrNoGroups                 ErrorCode = "NO_GROUPS"                  // 409
	ErrDuplicateOriginalBinding ErrorCode = "DUPLICATE_ORIGINAL_BINDING" // 409
	ErrInvalidFormat            ErrorCode = "INVALID_FORMAT"             // 422
	ErrInternal                 ErrorCode = "INTERNAL"                   // 500
)

// SieveError represents a structured error with code, status, and details.
// None of these are fatal: callers report them and leave state unchanged.
type SieveError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SieveError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewIndexOutOfRange creates a 400 error for a group index outside [lo, n).
func NewIndexOutOfRange(index, lo, n int) *SieveError {
	return &SieveError{
		Code:    ErrIndexOutOfRange,
		Status:  400,
		Message: fmt.Sprintf("group index %d out of range [%d, %d)", index, lo, n),
		Details: map[string]any{"index": index, "min": lo, "count": n},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SieveError {
	return &SieveError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewGroupNotFound creates a 404 error for a by-name group lookup miss.
func NewGroupNotFound(name string) *SieveError {
	return &SieveError{
		Code:    ErrGroupNotFound,
		Status:  404,
		Message: fmt.Sprintf("group not found: %s", name),
		Details: map[string]any{"name": name},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *SieveError {
	return &SieveError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNoGroups creates a 409 error for cycling with an empty group store.
func NewNoGroups() *SieveError {
	return &SieveError{
		Code:    ErrNoGroups,
		Status:  409,
		Message: "no groups created yet",
	}
}

// NewDuplicateOriginalBinding creates a 409 error when a category already has
// a different original name bound.
func NewDuplicateOriginalBinding(category, existing, proposed string) *SieveError {
	return &SieveError{
		Code:    ErrDuplicateOriginalBinding,
		Status:  409,
		Message: fmt.Sprintf("category %q already bound to original %q (got %q)", category, existing, proposed),
		Details: map[string]any{"category": category, "existing": existing, "proposed": proposed},
	}
}

// NewInvalidFormat creates a 422 error for malformed import documents.
func NewInvalidFormat(msg string) *SieveError {
	return &SieveError{
		Code:    ErrInvalidFormat,
		Status:  422,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SieveError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SieveError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error (or anything it wraps) is a SieveError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SieveError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As returns the SieveError in err's chain, if any.
func As(err error) (*SieveError, bool) {
	var sErr *SieveError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}
