package errors

import (
	"errors"
	"fmt"
)

// Common error types for the client core
var (
	// Storage errors
	ErrStoreUnavailable = errors.New("credential store unavailable")
	ErrStoreSealed      = errors.New("credential store is sealed with a different passphrase")
	ErrUnknownBackend   = errors.New("unknown credential store backend")

	// Backend contract errors
	ErrInvalidResponse = errors.New("invalid backend response")
	ErrRequestFailed   = errors.New("backend request failed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
