// Package cryptox implements the cryptographic primitives behind the vault:
// password-based key derivation, authenticated symmetric encryption with
// detached auth tags, and salted one-way hashing for verification.
//
// Ciphertext, IV and auth tag are always produced and consumed as separate
// values so they can be stored as sibling fields, never concatenated.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"

	"github.com/dmitrijs2005/envvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived and random key length (AES-256).
	KeySize = 32
	// SaltSize is the salt length used for key derivation and hashing.
	SaltSize = 16
	// IVSize is the AES-GCM nonce length.
	IVSize = 12
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16

	// pbkdf2Iterations is fixed; changing it invalidates every stored
	// derived-key artifact, so treat it as part of the storage format.
	pbkdf2Iterations = 100_000
)

// DeriveKey derives a 256-bit symmetric key from a secret and a salt using
// PBKDF2-SHA256. Deterministic for identical inputs.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, pbkdf2Iterations, KeySize, sha256.New)
}

// GenerateSalt returns a fresh random salt.
func GenerateSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// Encrypt encrypts plaintext with AES-256-GCM under key. A fresh random IV is
// generated per call. The auth tag is detached from the ciphertext.
func Encrypt(plaintext, key []byte) (ciphertext, iv, authTag []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}

	iv = common.GenerateRandByteArray(IVSize)

	sealed := aesgcm.Seal(nil, iv, plaintext, nil)

	// Seal appends the tag to the ciphertext; split it off for storage.
	split := len(sealed) - TagSize
	return sealed[:split], iv, sealed[split:], nil
}

// Decrypt reverses Encrypt. Any failure to open (wrong key, tampered
// ciphertext, tag mismatch) is reported as common.ErrDecryptionFailed so the
// caller can distinguish it from an authorization failure.
func Decrypt(ciphertext, iv, authTag, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	plaintext, err := aesgcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}

// Hash computes a salted SHA-256 digest of value. Used only for verification
// (passcodes, master keys), never for confidentiality.
func Hash(value, salt []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(value)
	return h.Sum(nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
