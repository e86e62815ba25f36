// Package crypto seals datasource passwords at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
)

// SealedPrefix marks a stored password as AES-GCM sealed. Stored values
// without it are legacy plaintext rows and pass through unchanged.
const SealedPrefix = "enc:v1:"

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrNoKey is returned when a sealed password is read without a key configured.
	ErrNoKey = errors.New("sealed datasource password found but CHECKPOINT_CREDENTIALS_KEY is not set")
)

// CredentialEncryptor seals and opens datasource passwords with AES-256-GCM.
// A nil *CredentialEncryptor is valid and only accepts plaintext values.
type CredentialEncryptor struct {
	gcm cipher.AEAD
}

// NewCredentialEncryptor creates an encryptor from a key string.
// A base64 value that decodes to exactly 32 bytes is used as the key;
// anything else is treated as a passphrase and hashed with SHA-256.
func NewCredentialEncryptor(keyInput string) (*CredentialEncryptor, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	key, err := base64.StdEncoding.DecodeString(keyInput)
	if err != nil || len(key) != 32 {
		sum := sha256.Sum256([]byte(keyInput))
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &CredentialEncryptor{gcm: gcm}, nil
}

// NewOptionalEncryptor returns nil without error when keyInput is empty so
// that catalogs holding only plaintext passwords work without a key.
func NewOptionalEncryptor(keyInput string) (*CredentialEncryptor, error) {
	if keyInput == "" {
		return nil, nil
	}
	return NewCredentialEncryptor(keyInput)
}

// IsSealed reports whether a stored password carries the sealed prefix.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, SealedPrefix)
}

// Seal encrypts a password for storage as SealedPrefix + base64(nonce || ciphertext || tag).
// The empty password stays empty.
func (e *CredentialEncryptor) Seal(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if e == nil {
		return "", ErrNoKey
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.gcm.Seal(nonce, nonce, []byte(password), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open returns the usable password for a stored value. Plaintext values are
// returned as-is; sealed values that fail authentication report
// apperrors.ErrCredentialsKeyMismatch.
func (e *CredentialEncryptor) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	if e == nil {
		return "", ErrNoKey
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", apperrors.ErrCredentialsKeyMismatch)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize+e.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", apperrors.ErrCredentialsKeyMismatch)
	}

	plaintext, err := e.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", apperrors.ErrCredentialsKeyMismatch
	}
	return string(plaintext), nil
}
