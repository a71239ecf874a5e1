package errors

import (
	"errors"
	"fmt"
)

// Common error types for the client auth subsystem
var (
	// Storage errors
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage failure")

	// Session errors
	ErrSessionExpired   = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Profile errors
	ErrInvalidProfile = errors.New("invalid user profile")
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
