package secrets

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound deliberately covers "never existed", "expired" and
	// "raced with another consumer" so Retrieve leaks nothing about which.
	ErrNotFound = errors.New("secret not found or has expired")

	// ErrAlreadyViewed is only reachable through the pre-consume fast path;
	// under a race it collapses into ErrNotFound.
	ErrAlreadyViewed = errors.New("secret has already been viewed")

	ErrPasswordRequired = errors.New("password required")
	ErrInvalidPassword  = errors.New("invalid password")

	// ErrDecryptionFailed indicates data corruption or a key mismatch;
	// never silently swallowed, never detailed to the caller.
	ErrDecryptionFailed = errors.New("failed to decrypt secret")

	// ErrIDExhausted fires when the bounded id allocation loop runs out of
	// attempts, which points at a compromised random source.
	ErrIDExhausted = errors.New("could not allocate a unique secret id")
)

// ValidationError reports a bad input shape or bound. The message is safe to
// echo back to the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
