// internal/domain/trend/errors.go

package trend

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInsufficientData means the tenant has too little content to
	// cluster. Expected during normal operation, not a server fault.
	ErrInsufficientData = errors.New("not enough content to detect trends")

	// ErrSourceUnavailable means the content collaborator could not be
	// reached. Transient; callers should retry.
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrInvalidParameters means the caller supplied out-of-range
	// detection parameters. Rejected before any work is done.
	ErrInvalidParameters = errors.New("invalid detection parameters")

	// ErrNotFound means the requested trend does not exist
	ErrNotFound = errors.New("trend not found")
)

// PersistenceError reports a store write that failed after the detection
// computation succeeded. The computed trends are carried alongside so the
// caller can still use the result; Persisted counts how many of them made
// it into the store before the failure.
type PersistenceError struct {
	Err       error
	Trends    []Trend
	Persisted int
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisted %d of %d trends: %v", e.Persisted, len(e.Trends), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
