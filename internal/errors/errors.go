package errors

import (
	stderrors "errors"
)

// Process exit codes, one per error kind.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitInput     = 3
	ExitTransform = 4
	ExitOutput    = 5
)

var exitCodes = map[ErrorType]int{
	ErrTypeConfig:    ExitConfig,
	ErrTypeInput:     ExitInput,
	ErrTypeNotFound:  ExitInput,
	ErrTypeTransform: ExitTransform,
	ErrTypeOutput:    ExitOutput,
}

// As is a convenience around errors.As for *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the type of the outermost AppError in the chain, or "" when
// err carries none.
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[TypeOf(err)]; ok {
		return code
	}
	return ExitFailure
}
