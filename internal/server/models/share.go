package models

import "time"

// SharedSecret is a double-wrapped, time-boxed public share of a variable
// subset:
//
//   - EncryptedPayload: the selected (name, value) pairs as JSON, encrypted
//     under a random per-share key.
//   - EncryptedShareKey: that random key, wrapped under a key derived from an
//     independent share passcode and ShareSalt.
//   - EncryptedPasscode: the share passcode itself, wrapped under the
//     project key so members can recall it later.
type SharedSecret struct {
	ID            string
	ProjectID     string
	EnvironmentID string
	CreatedBy     string

	EncryptedPayload []byte
	PayloadIV        []byte
	PayloadAuthTag   []byte

	ShareSalt         []byte
	EncryptedShareKey []byte
	ShareKeyIV        []byte
	ShareKeyAuthTag   []byte

	EncryptedPasscode []byte
	PasscodeIV        []byte
	PasscodeAuthTag   []byte

	ExpiresAt    *time.Time
	IsIndefinite bool
	Views        int
	MaxViews     *int
	Disabled     bool

	CreatedAt time.Time
}
