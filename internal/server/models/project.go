package models

import "time"

// Project is the unit of sharing. The project passcode never appears here in
// plaintext: PasscodeHash allows lockout-free re-entry checks, the
// Encrypted* triple is the passcode wrapped under a key derived from the
// owner's master key, and the Verifier* triple is a known constant encrypted
// under the passcode-derived project key at creation time.
//
// PasscodeSalt is shared by both derivations and survives master-key
// rotation unchanged, so variable ciphertexts stay valid.
type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string

	PasscodeHash []byte
	PasscodeSalt []byte

	EncryptedPasscode []byte
	PasscodeIV        []byte
	PasscodeAuthTag   []byte

	VerifierCiphertext []byte
	VerifierIV         []byte
	VerifierAuthTag    []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectMember links a user to a project with a role. Every project has
// exactly one owner membership; it can never be removed or demoted.
type ProjectMember struct {
	ID        string
	ProjectID string
	UserID    string
	Role      Role
	CreatedAt time.Time
}
