// Package retry runs an operation that can fail with a known conflict kind,
// giving it a bounded number of attempts before giving up.
package retry

import (
	"errors"
	"fmt"
)

var ErrExhausted = errors.New("retry attempts exhausted")

// OnConflict calls fn up to attempts times. fn receives the zero-based attempt
// number so it can resample its input. Errors for which isConflict reports
// true trigger another attempt; any other error is returned as is. When every
// attempt conflicts the returned error wraps both ErrExhausted and the last
// conflict.
func OnConflict(attempts int, isConflict func(error) bool, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		last = err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, last)
}
