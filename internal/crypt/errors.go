package crypt

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedContainer is returned when a container is shorter than its
	// format allows.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrDecryption is returned when no key/offset hypothesis yields a valid
	// plaintext. Wrong keys and corrupted containers are not distinguished.
	ErrDecryption = errors.New("decryption failed")
)

// DecryptionError reports the last underlying failure after every hypothesis
// for a container was exhausted.
type DecryptionError struct {
	Type     Type
	Attempts int
	Err      error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", ErrDecryption, e.Type, e.Attempts, e.Err)
}

func (e *DecryptionError) Unwrap() []error {
	return []error{ErrDecryption, e.Err}
}
