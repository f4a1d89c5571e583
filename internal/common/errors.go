// Package common contains shared constants and sentinel errors used across
// envvault components.
package common

import "errors"

var (
	// identity / authorization
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// repository specific errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// validation and quota errors
	ErrBadRequest   = errors.New("bad request")
	ErrLimitReached = errors.New("limit reached")

	// crypto errors. ErrDecryptionFailed means a wrong key, a wrong passcode
	// or tampered ciphertext; it is never an authorization failure.
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrWrongPasscode      = errors.New("wrong passcode")
	ErrIncorrectMasterKey = errors.New("incorrect master key")
	ErrProjectLocked      = errors.New("project locked")
	ErrRotationFailed     = errors.New("master key rotation failed")

	// share lifecycle errors
	ErrShareExpired     = errors.New("share expired")
	ErrShareDisabled    = errors.New("share disabled")
	ErrViewLimitReached = errors.New("share view limit reached")

	ErrInternal     = errors.New("internal error")
	ErrInvalidToken = errors.New("invalid token")
)
