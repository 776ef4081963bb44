package countdown

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrAlreadyRunning  = errors.New("countdown already running")
	ErrClosed          = errors.New("countdown engine closed")
)

// DurationError reports which part of a requested duration was rejected.
type DurationError struct {
	Field string
	Value int
	Err   error
}

func (e *DurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s %d: %v", e.Field, e.Value, e.Err)
}

func (e *DurationError) Unwrap() error { return e.Err }
