package provider

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by bindings for operations they do not
// implement. It is never retried.
var ErrUnsupported = errors.New("operation not supported")

// Unsupported returns an ErrUnsupported naming the operation and provider.
func Unsupported(provider, operation string) error {
	return fmt.Errorf("%s: %s: %w", provider, operation, ErrUnsupported)
}

// IsUnsupported reports whether err wraps ErrUnsupported.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
