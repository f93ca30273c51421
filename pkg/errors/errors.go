package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfig            = errors.New("configuration error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrLemmatizer        = errors.New("lemmatizer unavailable")
	ErrDependency        = errors.New("external dependency unavailable")
	ErrMalformedResponse = errors.New("malformed lemmatizer response")
	ErrOutput            = errors.New("writing output failed")
	ErrTimeout           = errors.New("operation timed out")
)

// Process exit codes, one per error kind.
const (
	ExitOK              = 0
	ExitInternal        = 1
	ExitConfig          = 2
	ExitInvalidInput    = 3
	ExitExternalService = 4
	ExitOutput          = 5
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrLemmatizer), errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrDependency), errors.Is(err, ErrTimeout):
		return ExitExternalService
	case errors.Is(err, ErrOutput):
		return ExitOutput
	default:
		return ExitInternal
	}
}
