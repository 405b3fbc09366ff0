package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input that was rejected before any work started.
	ErrValidation = errors.New("invalid input")
	// ErrDataUnavailable marks requests for which no usable price history exists.
	ErrDataUnavailable = errors.New("data unavailable")
)

// ValidationError names the violated precondition on a request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataUnavailableError reports that the requested universe has no usable data.
type DataUnavailableError struct {
	Tickers []string
	Reason  string
}

func (e *DataUnavailableError) Error() string {
	if len(e.Tickers) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: [%s]", e.Reason, strings.Join(e.Tickers, ", "))
}

// Is lets errors.Is(err, ErrDataUnavailable) match.
func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}
