package model

import (
	"errors"
	"fmt"
)

// ConfigurationError marks a fatal misconfiguration the user has to fix,
// like a missing API key or an unsupported backend name. It is never
// retried or absorbed by fallback.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DependencyError marks a backend that could not be constructed, like a
// local model that failed to load. It is recoverable through fallback
// and only surfaces if the fallback fails too.
type DependencyError struct {
	Backend BackendKind
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("embedding backend %q unavailable: %v", e.Backend, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError marks an attempt to add or compare a vector
// whose length differs from the collection's established length. It is
// the only error the recovery controller acts on.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	if e.Want > 0 || e.Got > 0 {
		return fmt.Sprintf("collection %q expects %d dimensions, got %d", e.Collection, e.Want, e.Got)
	}
	return fmt.Sprintf("vector dimensionality does not match collection %q", e.Collection)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsDependencyUnavailable reports whether err is a DependencyError.
func IsDependencyUnavailable(err error) bool {
	var target *DependencyError
	return errors.As(err, &target)
}

// IsDimensionMismatch reports whether err is a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var target *DimensionMismatchError
	return errors.As(err, &target)
}
