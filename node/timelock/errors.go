package timelock

import "github.com/pkg/errors"

var (
	// ErrCipherLengthMismatch is returned before any delay work when the
	// ciphertext does not have the recorded message length.
	ErrCipherLengthMismatch = errors.New("cipher text length mismatch")
	ErrInvalidSignature     = errors.New("invalid record signature")
	ErrIncompatibleVersion  = errors.New("incompatible record version")
	ErrInvalidRecord        = errors.New("invalid record")
)
