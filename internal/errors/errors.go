package errors

import (
	"errors"
	"fmt"
)

// Common error types for the account-linking service
var (
	// Session errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden for tenant")

	// Linking flow errors
	ErrInvalidState  = errors.New("invalid link state")
	ErrProviderError = errors.New("provider reported error")

	// Provider exchange errors
	ErrProviderRejected      = errors.New("provider rejected proof")
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrProviderMisconfigured = errors.New("provider misconfigured")

	// Store errors
	ErrPersistFailed      = errors.New("credential persist failed")
	ErrCredentialNotFound = errors.New("credential not found")

	// Tenant errors
	ErrTenantNotFound = errors.New("tenant not found")

	// General errors
	ErrNotFound = errors.New("not found")
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
